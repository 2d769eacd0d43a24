package main

import "github.com/HaiFongPan/fmbot/cmd"

func main() {
	cmd.Execute()
}
