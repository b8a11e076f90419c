package main

import "github.com/khrees2412/applytrack/cmd"

func main() {
	cmd.Execute()
}
