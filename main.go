package main

import "github.com/KaramelBytes/bizratio-cli/cmd"

func main() {
	cmd.Execute()
}
