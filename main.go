package main

import "ausflug-backend/cmd"

func main() {
	cmd.Run()
}
