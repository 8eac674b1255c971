// Command gdrive-auth runs the one-time OAuth consent flow and prints the
// refresh token to put in GDRIVE_REFRESH_TOKEN for STORAGE_PROVIDER=gdrive.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"fileconv/internal/config"
	"fileconv/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	wait := flag.Duration("wait", 3*time.Minute, "how long to wait for the browser callback")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Format: "text", Output: os.Stderr, ServiceName: "gdrive-auth"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}
	if cfg.GDriveClientID == "" || cfg.GDriveSecret == "" {
		log.LogFatal("missing OAuth client", errors.New("GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET are required"))
	}

	tok, err := authorize(context.Background(), cfg, *wait)
	if err != nil {
		log.LogFatal("authorization failed", err)
	}

	// Google only returns a refresh token on the first consent for a client.
	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Println("\nNo refresh_token was returned.")
		fmt.Println("Revoke the app's access in your Google Account and run this command again:")
		fmt.Println("https://myaccount.google.com/permissions")
		os.Exit(1)
	}

	fmt.Println("\nGDRIVE_REFRESH_TOKEN=" + tok.RefreshToken)
}

func authorize(ctx context.Context, cfg *config.Config, wait time.Duration) (*oauth2.Token, error) {
	// Local callback on a free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope}, // only files this app creates
		RedirectURL:  redirectURL,
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- errors.New("invalid state")
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "auth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- errors.New("missing code")
			return
		}

		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		codeCh <- code
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	// offline access so Google issues a refresh token
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Println("\nOpen this URL in your browser:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authorization on", redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(wait):
		return nil, errors.New("timed out waiting for authorization")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
