package export

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/montanaflynn/stats"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

type chartPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type chartSeries struct {
	Name string       `json:"name"`
	Data []chartPoint `json:"data"`
}

type performanceBands struct {
	HighThreshold float64 `json:"highThreshold"`
	LowThreshold  float64 `json:"lowThreshold"`
}

type chartData struct {
	Months      []string         `json:"months"`
	Series      []chartSeries    `json:"series"`
	Performance performanceBands `json:"performance"`
}

// WriteHTML writes a standalone page that charts the statistics with
// plotly.js. The data is embedded as JSON; the page needs no server.
func WriteHTML(authorStats domain.AuthorStats, path string) error {
	data := buildChartData(authorStats)
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode chart data: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := htmlTemplate.Execute(f, template.JS(encoded)); err != nil {
		f.Close()
		return fmt.Errorf("render HTML: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// buildChartData flattens the stats into sorted month/series form and
// computes the performance-band thresholds: the 75th and 25th percentiles of
// per-author totals over the whole range.
func buildChartData(authorStats domain.AuthorStats) *chartData {
	months := authorStats.Months()
	data := &chartData{Months: months, Series: []chartSeries{}}

	totals := make([]float64, 0, len(authorStats))
	for _, author := range authorStats.Authors() {
		series := chartSeries{Name: author, Data: make([]chartPoint, 0, len(months))}
		total := 0
		for _, month := range months {
			count := authorStats.Count(author, month)
			series.Data = append(series.Data, chartPoint{Month: month, Count: count})
			total += count
		}
		totals = append(totals, float64(total))
		data.Series = append(data.Series, series)
	}

	// Percentile needs enough samples; with a tiny team the bands stay zero
	// and the page hides the performance view thresholds.
	if high, err := stats.Percentile(totals, 75); err == nil {
		data.Performance.HighThreshold = high
	}
	if low, err := stats.Percentile(totals, 25); err == nil {
		data.Performance.LowThreshold = low
	}
	return data
}

var htmlTemplate = template.Must(template.New("metrics").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>GitLab Merge Request Metrics</title>
    <script src="https://cdn.plot.ly/plotly-2.27.0.min.js"></script>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background-color: white;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
        }
        h1 { color: #2f2f2f; text-align: center; font-size: 24px; }
        .controls {
            margin: 20px 0;
            padding: 15px;
            background-color: #f8f9fa;
            border-radius: 4px;
        }
        .view-controls { margin-bottom: 15px; display: flex; gap: 10px; }
        .user-toggles { display: flex; flex-wrap: wrap; gap: 8px; margin-top: 10px; }
        .button {
            padding: 8px 16px;
            border: none;
            border-radius: 4px;
            cursor: pointer;
            font-size: 14px;
        }
        .view-button { background-color: #e9ecef; color: #495057; }
        .view-button.active { background-color: #228be6; color: white; }
        .user-toggle {
            background-color: #e9ecef;
            color: #495057;
            padding: 4px 12px;
            border-radius: 15px;
        }
        .user-toggle.active { background-color: #228be6; color: white; }
        .chart-container {
            margin-top: 20px;
            padding: 15px;
            border: 1px solid #e0e0e0;
            border-radius: 4px;
            min-height: 600px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>GitLab Merge Request Metrics</h1>
        <div class="controls">
            <div class="view-controls">
                <button class="button view-button active" data-view="individual">Individual View</button>
                <button class="button view-button" data-view="team">Team Average</button>
                <button class="button view-button" data-view="all">View All</button>
                <button class="button view-button" data-view="performance">Performance Bands</button>
            </div>
            <div class="user-toggles"></div>
        </div>
        <div id="chart" class="chart-container"></div>
    </div>
    <script>
        const data = {{.}};
        const colors = ['#228be6', '#40c057', '#fab005', '#fd7e14', '#e64980', '#7950f2', '#15aabf'];
        let currentView = 'individual';
        let selectedUsers = new Set(data.series.length ? [data.series[0].name] : []);

        function initControls() {
            const toggles = document.querySelector('.user-toggles');
            data.series.forEach(function (s) {
                const button = document.createElement('button');
                button.className = 'button user-toggle' + (selectedUsers.has(s.name) ? ' active' : '');
                button.setAttribute('data-user', s.name);
                button.textContent = s.name;
                button.onclick = function () { toggleUser(s.name); };
                toggles.appendChild(button);
            });
            document.querySelectorAll('.view-button').forEach(function (button) {
                button.onclick = function () { switchView(button.dataset.view); };
            });
        }

        function toggleUser(name) {
            if (currentView !== 'individual') return;
            if (selectedUsers.has(name)) {
                if (selectedUsers.size > 1) selectedUsers.delete(name);
            } else {
                selectedUsers.add(name);
            }
            document.querySelectorAll('.user-toggle').forEach(function (button) {
                button.classList.toggle('active', selectedUsers.has(button.dataset.user));
            });
            render();
        }

        function switchView(view) {
            currentView = view;
            document.querySelectorAll('.view-button').forEach(function (button) {
                button.classList.toggle('active', button.dataset.view === view);
            });
            render();
        }

        function seriesTrace(s, i) {
            return {
                name: s.name,
                x: s.data.map(function (d) { return d.month; }),
                y: s.data.map(function (d) { return d.count; }),
                type: 'scatter',
                mode: 'lines+markers',
                line: { color: colors[i % colors.length] }
            };
        }

        function render() {
            let traces = [];
            if (currentView === 'individual') {
                traces = data.series
                    .filter(function (s) { return selectedUsers.has(s.name); })
                    .map(seriesTrace);
            } else if (currentView === 'all' || currentView === 'performance') {
                traces = data.series.map(seriesTrace);
                if (currentView === 'performance' && data.performance.highThreshold > 0) {
                    traces.push({
                        name: 'Top performers (75th pct)',
                        x: data.months,
                        y: data.months.map(function () { return data.performance.highThreshold / (data.months.length || 1); }),
                        type: 'scatter',
                        mode: 'lines',
                        line: { dash: 'dash', color: '#40c057' }
                    });
                    traces.push({
                        name: 'Low performers (25th pct)',
                        x: data.months,
                        y: data.months.map(function () { return data.performance.lowThreshold / (data.months.length || 1); }),
                        type: 'scatter',
                        mode: 'lines',
                        line: { dash: 'dash', color: '#fa5252' }
                    });
                }
            } else {
                const averages = data.months.map(function (month, i) {
                    let sum = 0;
                    data.series.forEach(function (s) { sum += s.data[i].count; });
                    return data.series.length ? sum / data.series.length : 0;
                });
                traces = [{
                    name: 'Team average',
                    x: data.months,
                    y: averages,
                    type: 'scatter',
                    mode: 'lines+markers',
                    line: { color: '#2563eb', width: 3 }
                }];
            }

            Plotly.newPlot('chart', traces, {
                xaxis: { title: 'Month', tickangle: -45 },
                yaxis: { title: 'Merge requests' },
                hovermode: 'closest',
                showlegend: true
            }, { responsive: true, displaylogo: false });
        }

        initControls();
        render();
    </script>
</body>
</html>
`))
