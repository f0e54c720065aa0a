package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/hotswap/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the operational state of a running server",
	Long: `Query the /status endpoint of a running hotswap server and print its
operational state and active handler version. Exits non-zero unless the
server reports ready.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// serverStatus is what the status command reads from GET /status.
type serverStatus struct {
	State          string
	HandlerVersion uint64
	Ready          bool
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	addr := dialAddress(&cfg.API)
	client := &http.Client{Timeout: 5 * time.Second}

	st, err := fetchStatus(cmd.Context(), client, "http://"+addr)
	if err != nil {
		fmt.Printf("✗ hotswap is not running (%s)\n", addr)
		return fmt.Errorf("server not reachable: %w", err)
	}

	if !st.Ready {
		fmt.Printf("✗ hotswap is %s (%s, handler v%d)\n", st.State, addr, st.HandlerVersion)
		return fmt.Errorf("server not ready: %s", st.State)
	}

	fmt.Printf("✓ hotswap is %s (%s, handler v%d)\n", st.State, addr, st.HandlerVersion)
	return nil
}

// dialAddress turns the listen address into one a client can dial.
func dialAddress(api *config.APIConfig) string {
	host := api.Address
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(api.Port))
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) (serverStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", http.NoBody)
	if err != nil {
		return serverStatus{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return serverStatus{}, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return serverStatus{}, err
	}
	if resp.StatusCode != http.StatusOK || !gjson.ValidBytes(body) {
		return serverStatus{}, fmt.Errorf("unexpected /status response: %d", resp.StatusCode)
	}

	return serverStatus{
		State:          gjson.GetBytes(body, "state").String(),
		Ready:          gjson.GetBytes(body, "ready").Bool(),
		HandlerVersion: gjson.GetBytes(body, "handler_version").Uint(),
	}, nil
}
