package main

import "github.com/spachava753/promosweep/cli"

func main() {
	cli.Execute()
}
