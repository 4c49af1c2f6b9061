package main

import "github.com/haidang-dev/warden/internal/cli"

func main() {
	cli.Execute()
}
