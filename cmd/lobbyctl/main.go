package main

import "github.com/mcoot/lobbyhub/internal/cli"

func main() {
	cli.Execute()
}
