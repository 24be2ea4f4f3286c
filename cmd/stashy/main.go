package main

import "github.com/stashyhq/stashy/internal/cli"

func main() {
	cli.Execute()
}
