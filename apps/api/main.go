package main

import "os"

// The API can be wired by hand or through a dig container (DI=dig).
func main() {
	if os.Getenv("DI") == "dig" {
		startWithDig()
		return
	}
	startManual()
}
