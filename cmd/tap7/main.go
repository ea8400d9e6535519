package main

import "github.com/OpenTraceLab/OpenTraceTAP7/cmd/tap7/cmd"

func main() {
	cmd.Execute()
}
