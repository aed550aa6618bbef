// Command teesheet runs the mock tee sheet server for local testing.
//
// Usage:
//
//	teesheet [flags]
//
// Flags:
//
//	-addr      Address to listen on (default: localhost:8080)
//	-open-in   How long until the booking window opens (default: 1m)
//	-capacity  Bookings accepted per slot (default: 1)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"burstfire/testserver"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "address to listen on")
	openIn := flag.Duration("open-in", time.Minute, "how long until the booking window opens")
	capacity := flag.Int("capacity", 1, "bookings accepted per slot")
	sessionCookie := flag.String("session-cookie", "", "required session cookie value (empty disables the check)")
	latency := flag.Duration("latency", 0, "artificial latency added to every booking response")
	rejectAuth := flag.Bool("reject-auth", false, "reject every login and booking with 401")
	flag.Parse()

	opensAt := time.Now().Add(*openIn)
	server := testserver.NewServer(testserver.Options{
		OpensAt:       opensAt,
		Capacity:      *capacity,
		SessionCookie: *sessionCookie,
		RejectAuth:    *rejectAuth,
		Latency:       *latency,
	})

	fmt.Println("Mock Tee Sheet Server")
	fmt.Println("=====================")
	fmt.Printf("Listening on http://%s\n", *addr)
	fmt.Printf("Window opens at %s (in %v)\n\n", opensAt.Format("15:04:05.000"), *openIn)
	fmt.Println("Endpoints:")
	fmt.Println("  POST /login             - Credential login, sets session cookie")
	fmt.Println("  POST /api/booking/book  - Book a slot (400 until the window opens)")
	fmt.Println("  GET  /health            - Health check")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(*addr, server.Handler()))
}
