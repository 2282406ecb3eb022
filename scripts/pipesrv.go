//go:build windows

// Manual test server for pipetap: listens on a named pipe, writes a payload
// to each client and closes its end, which is the shape pipetap consumes.
//
//	go run scripts/pipesrv.go [path] [payload]
package main

import (
	"log"
	"os"

	"github.com/Microsoft/go-winio"
)

func main() {
	path := `\\.\pipe\pipetap-test`
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	payload := []byte("hello from pipesrv\n")
	if len(os.Args) > 2 {
		payload = []byte(os.Args[2])
	}

	ln, err := winio.ListenPipe(path, nil)
	if err != nil {
		log.Fatalln("Failed to listen on the pipe:", err)
	}
	defer ln.Close()
	log.Println("serving on", path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Fatalln("Failed to accept on the pipe:", err)
		}
		if _, err := conn.Write(payload); err != nil {
			log.Println("write:", err)
		}
		conn.Close()
	}
}
