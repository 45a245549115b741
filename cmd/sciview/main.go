package main

import "sciview/internal/cli"

func main() {
	cli.Execute()
}
