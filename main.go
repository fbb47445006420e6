package main

import "github.com/teamlens/gitlab-metrics/cmd"

func main() {
	cmd.Execute()
}
