package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Scopes requested by the interactive flow.
var Scopes = []string{
	"https://www.googleapis.com/auth/presentations",
	"https://www.googleapis.com/auth/drive.file",
}

// DefaultCallbackPort is the loopback port receiving the authorization code.
const DefaultCallbackPort = 3847

const authTimeout = 2 * time.Minute

// ErrNoToken is returned when no stored credentials exist yet.
var ErrNoToken = errors.New("no authentication tokens found, run 'slidetx auth' first")

// OAuthConfig builds the client configuration from GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET.
func OAuthConfig(port int) (*oauth2.Config, error) {
	id, secret := os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil, errors.New("missing GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET environment variables")
	}
	if port == 0 {
		port = DefaultCallbackPort
	}
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     endpoints.Google,
		RedirectURL:  "http://localhost:" + strconv.Itoa(port) + "/callback",
		Scopes:       Scopes,
	}, nil
}

// TokenStore keeps the token as JSON in a file only the owner can read.
type TokenStore struct {
	path string
}

// NewTokenStore creates a TokenStore backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the stored token. It returns ErrNoToken when there is none.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}
	tok := new(oauth2.Token)
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("unable to parse token file %s: %w", s.path, err)
	}
	return tok, nil
}

// Save writes tok with mode 0600, creating the directory if needed.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

// Clear removes the stored token, if any.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// savingSource writes every refreshed token back to the store.
type savingSource struct {
	src   oauth2.TokenSource
	store *TokenStore
	log   *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			s.log.Warn("Unable to save refreshed token", zap.String("file", s.store.Path()), zap.Error(err))
		} else {
			s.log.Debug("Token saved", zap.Time("expiry", tok.Expiry))
		}
	}
	return tok, nil
}

// HTTPClient returns a client authorised with the stored token, refreshing
// and re-saving it as it expires.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, store *TokenStore, log *zap.Logger) (*http.Client, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	src := &savingSource{src: cfg.TokenSource(ctx, tok), store: store, log: log, last: tok.AccessToken}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// callbackHandler accepts only the redirect carrying state.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			offer(errs, errors.New("authorization state mismatch"))
			return
		}
		if msg := r.URL.Query().Get("error"); msg != "" {
			http.Error(w, "Authorization failed: "+msg, http.StatusBadRequest)
			offer(errs, fmt.Errorf("authorization failed: %s", msg))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing code parameter", http.StatusBadRequest)
			offer(errs, errors.New("no authorization code received"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<h1>Authentication successful!</h1><p>You can close this window.</p>")
		offer(codes, code)
	})
}

// offer delivers v unless a value is already waiting.
func offer[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// Authorize runs the interactive consent flow. show receives the URL the
// user must open; the code arrives on the loopback callback and the
// resulting token is saved to store.
func Authorize(ctx context.Context, cfg *oauth2.Config, store *TokenStore, show func(url string), log *zap.Logger) error {
	addr := "localhost:" + strconv.Itoa(DefaultCallbackPort)
	if u, err := url.Parse(cfg.RedirectURL); err == nil && u.Host != "" {
		addr = u.Host
	}

	codes := make(chan string, 1)
	errs := make(chan error, 2)
	mux := http.NewServeMux()
	state := uuid.NewString()
	mux.Handle("/callback", callbackHandler(state, codes, errs))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen for the callback: %w", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			offer(errs, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Waiting for authorization", zap.String("callback", addr))
	show(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")))

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(authTimeout):
		return errors.New("authentication timed out")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to exchange authorization code: %w", err)
	}
	if err := store.Save(tok); err != nil {
		return err
	}
	log.Info("Authentication successful", zap.String("file", store.Path()))
	return nil
}
