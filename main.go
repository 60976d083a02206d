package main

import "github.com/RishabhDotasara/Photoflow/cmd"

func main() {
	cmd.Execute()
}
