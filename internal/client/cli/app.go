package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/authcore/internal/client/client"
	"github.com/dmitrijs2005/authcore/internal/client/config"
)

type tokenStore interface {
	Save(ctx context.Context, t client.Tokens) error
	Close() error
}

type App struct {
	config *config.Config
	client client.Client
	store  tokenStore
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the state file, restores the saved token pair and connects
// to the server. Every rotation is written back to the state file.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	store, err := client.OpenTokenStore(ctx, c.StateFile)
	if err != nil {
		return nil, fmt.Errorf("error opening state file: %w", err)
	}

	saved, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	persist := func(t client.Tokens) {
		if err := store.Save(context.Background(), t); err != nil {
			log.Printf("error saving tokens: %v", err)
		}
	}

	apiClient, err := client.NewSessionClient(c.ServerEndpointAddr, c.InternalAPIKey, client.WithTokenObserver(persist))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	apiClient.SetTokens(saved)

	return newApp(c, apiClient, store, bufio.NewReader(os.Stdin), os.Stdout), nil
}

func newApp(c *config.Config, cl client.Client, store tokenStore, reader *bufio.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, store: store, reader: reader, out: out}
}

func (a *App) isLoggedIn() bool {
	return !a.client.Tokens().Empty()
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(session)"
	}
	return ""
}

func (a *App) Run(ctx context.Context) {
	defer a.close()

	fmt.Fprintln(a.out, "authctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	if err := a.client.Close(); err != nil {
		log.Printf("error closing connection: %v", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("error closing state file: %v", err)
		}
	}
}
