package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

// flags
var (
	signerFlag = &cli.StringFlag{
		Name:     "signer",
		Usage:    "identity of the administrator",
		Required: true,
	}
	poolIdFlag = &cli.Uint64Flag{
		Name:     "id",
		Usage:    "pool id",
		Required: true,
	}
	createdAfterFlag = &cli.Int64Flag{
		Name:  "created-after",
		Usage: "only list pools created after this unix time",
	}
	createdBeforeFlag = &cli.Int64Flag{
		Name:  "created-before",
		Usage: "only list pools created before this unix time",
	}
	optionFlag = &cli.IntFlag{
		Name:     "option",
		Usage:    "winning option index",
		Required: true,
	}
)

// commands
var (
	poolsCmd = &cli.Command{
		Name:  "pools",
		Usage: "Manage the pools tracked by the daemon",
		Subcommands: append(
			cli.Commands{},
			poolsListCmd,
			poolsScheduledCmd,
			poolsSettleCmd,
			poolsCancelCmd,
			poolsResolveCmd,
		),
	}
	poolsListCmd = &cli.Command{
		Name:   "list",
		Usage:  "List pools by creation time",
		Action: poolsListAction,
		Flags:  []cli.Flag{createdAfterFlag, createdBeforeFlag},
	}
	poolsScheduledCmd = &cli.Command{
		Name:   "scheduled",
		Usage:  "List the pools waiting for an automatic action",
		Action: poolsScheduledAction,
	}
	poolsSettleCmd = &cli.Command{
		Name:   "settle",
		Usage:  "Run the automatic action of a pool now",
		Action: poolsSettleAction,
		Flags:  []cli.Flag{signerFlag, poolIdFlag},
	}
	poolsCancelCmd = &cli.Command{
		Name:   "cancel",
		Usage:  "Cancel a pool and make every stake refundable",
		Action: poolsCancelAction,
		Flags:  []cli.Flag{signerFlag, poolIdFlag},
	}
	poolsResolveCmd = &cli.Command{
		Name:   "resolve",
		Usage:  "Resolve a disputed market",
		Action: poolsResolveAction,
		Flags:  []cli.Flag{signerFlag, poolIdFlag, optionFlag},
	}
	configCmd = &cli.Command{
		Name:   "config",
		Usage:  "Show the fee config",
		Action: configAction,
	}
)

type trackedPool struct {
	PoolId    uint64 `json:"pool_id"`
	Deadline  int64  `json:"deadline"`
	Phase     string `json:"phase"`
	Scheduled bool   `json:"scheduled"`
	InFlight  bool   `json:"in_flight"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

type attempt struct {
	PoolId  uint64 `json:"pool_id"`
	Outcome string `json:"outcome"`
	Txid    string `json:"txid"`
}

type pool struct {
	Id          uint64 `json:"id"`
	Kind        string `json:"kind"`
	Question    string `json:"question"`
	Phase       string `json:"phase"`
	Outcome     int    `json:"outcome"`
	Deadline    int64  `json:"deadline"`
	TotalStaked uint64 `json:"total_staked"`
}

func poolsListAction(ctx *cli.Context) error {
	url := fmt.Sprintf(
		"%s/v1/pools?created_after=%d&created_before=%d",
		ctx.String("url"), ctx.Int64("created-after"), ctx.Int64("created-before"),
	)
	var res struct {
		Pools []pool `json:"pools"`
	}
	if err := call(ctx, http.MethodGet, url, nil, &res); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Pool", "Kind", "Phase", "Deadline", "Staked", "Question")
	for _, p := range res.Pools {
		//nolint:errcheck
		table.Append(
			fmt.Sprintf("%d", p.Id),
			p.Kind,
			p.Phase,
			time.Unix(p.Deadline, 0).UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", p.TotalStaked),
			p.Question,
		)
	}
	return table.Render()
}

func poolsScheduledAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/scheduled", ctx.String("url"))
	var res struct {
		Pools []trackedPool `json:"pools"`
	}
	if err := call(ctx, http.MethodGet, url, nil, &res); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Pool", "Phase", "Deadline", "Scheduled", "In flight", "Attempts", "Last error")
	for _, p := range res.Pools {
		deadline := "-"
		if p.Deadline > 0 {
			deadline = time.Unix(p.Deadline, 0).UTC().Format(time.RFC3339)
		}
		//nolint:errcheck
		table.Append(
			fmt.Sprintf("%d", p.PoolId),
			p.Phase,
			deadline,
			fmt.Sprintf("%t", p.Scheduled),
			fmt.Sprintf("%t", p.InFlight),
			fmt.Sprintf("%d", p.Attempts),
			p.LastError,
		)
	}
	return table.Render()
}

func poolsSettleAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/pools/%d/settle", ctx.String("url"), ctx.Uint64("id"))
	body := map[string]interface{}{"signer": ctx.String("signer")}

	var res attempt
	if err := call(ctx, http.MethodPost, url, body, &res); err != nil {
		return err
	}

	fmt.Printf("pool %d: %s", res.PoolId, res.Outcome)
	if res.Txid != "" {
		fmt.Printf(" (txid %s)", res.Txid)
	}
	fmt.Println()
	return nil
}

func poolsCancelAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/pools/%d/cancel", ctx.String("url"), ctx.Uint64("id"))
	body := map[string]interface{}{"signer": ctx.String("signer")}

	var res pool
	if err := call(ctx, http.MethodPost, url, body, &res); err != nil {
		return err
	}

	fmt.Printf("pool %d is now %s\n", res.Id, res.Phase)
	return nil
}

func poolsResolveAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/pools/%d/resolve", ctx.String("url"), ctx.Uint64("id"))
	body := map[string]interface{}{
		"signer": ctx.String("signer"),
		"option": ctx.Int("option"),
	}

	var res pool
	if err := call(ctx, http.MethodPost, url, body, &res); err != nil {
		return err
	}

	fmt.Printf("pool %d is now %s with outcome %d\n", res.Id, res.Phase, res.Outcome)
	return nil
}

func configAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/config", ctx.String("url"))

	var res map[string]interface{}
	if err := call(ctx, http.MethodGet, url, nil, &res); err != nil {
		return err
	}

	buf, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func call(ctx *cli.Context, method, url string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx.Context, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	if user := ctx.String("user"); user != "" {
		req.SetBasicAuth(user, ctx.String("pass"))
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", strings.TrimSpace(string(buf)))
	}
	return json.Unmarshal(buf, result)
}
