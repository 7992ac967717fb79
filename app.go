package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/matt-g-everett/slidetx/api"
	"github.com/matt-g-everett/slidetx/config"
	"github.com/matt-g-everett/slidetx/deck"
	"github.com/matt-g-everett/slidetx/preview"
	"github.com/matt-g-everett/slidetx/stream"
	"github.com/matt-g-everett/slidetx/stream/glyph"
	"github.com/matt-g-everett/slidetx/util"
)

type app struct {
	Config   *config.Config
	Log      *zap.Logger
	Client   mqtt.Client
	Mirror   *stream.Mirror
	Streamer *stream.Streamer

	abort   context.CancelFunc
	started time.Time
}

func newApp() *app {
	a := new(app)
	a.started = time.Now()
	return a
}

func (a *app) handleOnConnect(client mqtt.Client) {
	a.Log.Info("Connected", zap.String("broker", a.Config.MQTT.URL))
	if err := a.Mirror.Subscribe(a.abort); err != nil {
		a.Log.Warn("Unable to subscribe for control messages", zap.Error(err))
	}
}

// connect starts the frame mirror when MQTT is enabled.
func (a *app) connect() error {
	conf := a.Config.MQTT
	if !conf.Enabled {
		return nil
	}
	if l, err := zap.NewStdLogAt(a.Log.Named("mqtt"), zap.ErrorLevel); err == nil {
		mqtt.ERROR = l
	}

	options := mqtt.NewClientOptions().
		AddBroker(conf.URL).
		SetClientID(conf.ClientID).
		SetUsername(conf.Username).
		SetPassword(string(conf.Password)).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)
	a.Mirror = stream.NewMirror(a.Client, conf.Topic, conf.QoS, a.Log.Named("mirror"))

	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("unable to connect to %s: %w", conf.URL, token.Error())
	}
	return nil
}

func (a *app) disconnect() {
	if a.Client != nil && a.Client.IsConnected() {
		a.Client.Disconnect(250)
	}
}

func (a *app) slidesClient(ctx context.Context) (*api.Client, error) {
	oc, err := api.OAuthConfig(a.Config.Slides.CallbackPort)
	if err != nil {
		return nil, err
	}
	hc, err := api.HTTPClient(ctx, oc, api.NewTokenStore(a.Config.Slides.TokenFile), a.Log)
	if err != nil {
		return nil, err
	}
	return api.NewClient(ctx, hc)
}

// backend selects where requests go. A dry run writes into memory, seeded
// from the real presentation when one is named.
func (a *app) backend(ctx context.Context, dryRun bool, presentationID string) (stream.Backend, error) {
	if !dryRun {
		client, err := a.slidesClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	mem := api.NewMemory()
	if presentationID == "" {
		return mem, nil
	}
	client, err := a.slidesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("dry run against an existing presentation needs credentials: %w", err)
	}
	p, err := client.Get(ctx, presentationID)
	if err != nil {
		return nil, &stream.BackendError{Op: "get", PresentationID: presentationID, Err: err}
	}
	mem.Load(p)
	a.Log.Debug("Presentation copied for dry run", zap.String("presentation", presentationID), zap.Int("slides", len(p.Slides)))
	return mem, nil
}

// generator wires the streamer, its observers and the glyph source.
func (a *app) generator(cmd *cli.Command, backend stream.Backend, title string) (*deck.Generator, error) {
	ease, err := util.Easing(a.Config.Animation.Easing)
	if err != nil {
		return nil, err
	}
	a.Streamer = stream.NewStreamer(backend, a.Config.Slides.BatchSize, a.Log.Named("streamer"))

	if err := a.connect(); err != nil {
		return nil, err
	}
	if a.Mirror != nil {
		a.Streamer.AddObserver(a.Mirror)
	}
	if dir := cmd.String("preview"); dir != "" {
		rec, err := preview.NewRecorder(backend, dir, title, a.Config.Preview.Width, a.Log.Named("preview"))
		if err != nil {
			return nil, err
		}
		a.Log.Info("Recording frames", zap.String("dir", rec.Dir()))
		a.Streamer.AddObserver(rec)
	}
	if cmd.Bool("trace") {
		a.Streamer.AddObserver(preview.NewTracer(backend, os.Stdout, a.Log.Named("trace")))
	}

	glyphs := glyph.NewGenerator(a.Config.Animation.Alphabet, util.NewRandomSource(a.Config.Animation.Seed))
	return deck.NewGenerator(backend, a.Streamer, glyphs, ease, a.Log.Named("deck")), nil
}

func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func checkOutput(cmd *cli.Command) (string, error) {
	switch out := cmd.String("output"); out {
	case "url", "json":
		return out, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: url, json)", out)
	}
}

func (a *app) report(res *deck.Result, output string, backend stream.Backend) error {
	if mem, ok := backend.(*api.Memory); ok {
		a.Log.Info("Dry run complete, nothing was sent",
			zap.Int("batches", len(mem.Batches())), zap.Int("requests", len(mem.Requests())))
	}
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(os.Stdout, res.PresentationURL)
	return err
}

func (a *app) generate(ctx context.Context, cmd *cli.Command) error {
	output, err := checkOutput(cmd)
	if err != nil {
		return err
	}
	data, err := readInput(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("unable to read deck: %w", err)
	}
	d, err := deck.Parse(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.abort = cancel
	defer a.disconnect()

	backend, err := a.backend(ctx, cmd.Bool("dry-run"), d.PresentationID)
	if err != nil {
		return err
	}
	title := d.Title
	if title == "" {
		title = d.PresentationID
	}
	gen, err := a.generator(cmd, backend, title)
	if err != nil {
		return err
	}
	res, err := gen.Generate(ctx, d)
	if err != nil {
		return err
	}
	a.Log.Info("Deck generated", zap.String("url", res.PresentationURL), zap.String("mode", res.Mode),
		zap.Int("slides", res.Slides), zap.Int("animations", res.Animations))
	return a.report(res, output, backend)
}

func (a *app) review(ctx context.Context, cmd *cli.Command) error {
	output, err := checkOutput(cmd)
	if err != nil {
		return err
	}
	data, err := readInput(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("unable to read review: %w", err)
	}
	r, err := deck.ParseReview(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.abort = cancel
	defer a.disconnect()

	backend, err := a.backend(ctx, cmd.Bool("dry-run"), "")
	if err != nil {
		return err
	}
	gen, err := a.generator(cmd, backend, "PR "+r.PRTitle)
	if err != nil {
		return err
	}
	res, err := gen.GenerateReview(ctx, r)
	if err != nil {
		return err
	}
	return a.report(res, output, backend)
}

func (a *app) auth(ctx context.Context, cmd *cli.Command) error {
	store := api.NewTokenStore(a.Config.Slides.TokenFile)
	if cmd.Bool("logout") {
		if err := store.Clear(); err != nil {
			return err
		}
		a.Log.Info("Stored credentials removed", zap.String("file", store.Path()))
		return nil
	}

	oc, err := api.OAuthConfig(a.Config.Slides.CallbackPort)
	if err != nil {
		return err
	}
	show := func(url string) {
		fmt.Fprintf(os.Stdout, "Open this URL in your browser to authorize:\n\n%s\n\n", url)
	}
	if err := api.Authorize(ctx, oc, store, show, a.Log); err != nil {
		return err
	}
	a.Log.Info("Authentication successful", zap.String("file", store.Path()))
	return nil
}

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().Get(0)
	if dir == "" {
		dir = "."
	}
	if fi, err := os.Stat(dir); err != nil {
		return fmt.Errorf("unable to serve '%s': %w", dir, err)
	} else if !fi.IsDir() {
		return errors.New("'" + dir + "' is not a directory")
	}
	addr := cmd.String("addr")
	if addr == "" {
		addr = a.Config.Preview.Addr
	}
	return api.NewServer(dir, addr, a.Log.Named("server")).Serve(ctx)
}

func (a *app) outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() > 1 {
		a.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(a.Config)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	a.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
