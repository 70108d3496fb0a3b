package main

import "scrapejob/cmd/scrapejob/cmd"

func main() {
	cmd.Execute()
}
