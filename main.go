package main

import "shopforge/internal/app"

func main() {
	app.Main()
}
