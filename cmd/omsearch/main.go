package main

import "omsearch/internal/cli"

func main() {
	cli.Execute()
}
