package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mjelde/meetscribe/internal/bus"
	"github.com/mjelde/meetscribe/internal/chunkstore"
	"github.com/mjelde/meetscribe/internal/config"
	"github.com/mjelde/meetscribe/internal/notify"
	"github.com/mjelde/meetscribe/internal/session"
	"github.com/mjelde/meetscribe/internal/transcriber"
)

const drainTimeout = 60 * time.Second

// switchableAdapter lets a config hot reload swap the transcription provider
// without rebuilding the session controller. The next chunk after a swap goes
// to the new provider.
type switchableAdapter struct {
	mu    sync.RWMutex
	inner transcriber.Adapter
}

func (s *switchableAdapter) set(a transcriber.Adapter) {
	s.mu.Lock()
	s.inner = a
	s.mu.Unlock()
}

func (s *switchableAdapter) Transcribe(ctx context.Context, audio []byte, hints transcriber.Hints) (transcriber.Result, error) {
	s.mu.RLock()
	inner := s.inner
	s.mu.RUnlock()
	if inner == nil {
		return transcriber.Result{}, fmt.Errorf("no transcription provider configured")
	}
	return inner.Transcribe(ctx, audio, hints)
}

type Daemon struct {
	manager    *config.Manager
	controller *session.Controller
	adapter    *switchableAdapter

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	notifier   notify.Notifier
	transcript []session.Fragment
}

func New(manager *config.Manager) (*Daemon, error) {
	store, err := chunkstore.New()
	if err != nil {
		return nil, fmt.Errorf("chunk store: %w", err)
	}

	cfg := manager.GetConfig()

	adapter := &switchableAdapter{}
	if a, err := transcriber.NewAdapter(cfg.ToTranscriberConfig()); err != nil {
		log.Printf("daemon: transcription provider unavailable: %v", err)
	} else {
		adapter.set(a)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		manager: manager,
		adapter: adapter,
		ctx:     ctx,
		cancel:  cancel,
		notifier: notify.ForType(cfg.Notifications.Enabled,
			cfg.Notifications.Type),
	}

	d.controller = session.New(session.Deps{
		Store:   store,
		Adapter: adapter,
	})
	d.controller.OnResult(d.handleFragment)
	d.controller.OnError(d.handleSessionError)

	manager.OnReload(d.applyConfig)
	return d, nil
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	if a, err := transcriber.NewAdapter(cfg.ToTranscriberConfig()); err != nil {
		log.Printf("daemon: keeping previous provider after reload: %v", err)
	} else {
		d.adapter.set(a)
	}

	d.mu.Lock()
	d.notifier = notify.ForType(cfg.Notifications.Enabled, cfg.Notifications.Type)
	d.mu.Unlock()
}

// handleFragment keeps the transcript sorted by chunk index. Completion order
// is arbitrary, so each fragment is inserted at its chronological position.
func (d *Daemon) handleFragment(f session.Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := sort.Search(len(d.transcript), func(i int) bool {
		return d.transcript[i].ChunkIndex >= f.ChunkIndex
	})
	d.transcript = append(d.transcript, session.Fragment{})
	copy(d.transcript[i+1:], d.transcript[i:])
	d.transcript[i] = f
}

func (d *Daemon) handleSessionError(err error) {
	d.mu.Lock()
	n := d.notifier
	d.mu.Unlock()

	if ce, ok := session.AsChunkError(err); ok {
		log.Printf("daemon: chunk %d lost: %v", ce.Index, ce.Err)
		go n.ChunkLost(ce.Index, ce.Err)
		return
	}

	log.Printf("daemon: session error: %v", err)
	go n.SessionError(err.Error())
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config watching disabled: %v", err)
	}
	defer d.manager.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.shutdownSession()
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// shutdownSession drains any active session so no chunk artifacts leak on
// daemon exit.
func (d *Daemon) shutdownSession() {
	if d.controller.State() == session.Idle {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.controller.Stop(ctx); err != nil {
		log.Printf("daemon: drain on shutdown incomplete: %v", err)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdRecord:
		d.startSession(c)
	case bus.CmdFinish:
		d.stopSession(c)
	case bus.CmdStatus:
		d.writeStatus(c)
	case bus.CmdSpeakers:
		d.writeSpeakers(c)
	case bus.CmdClear:
		d.controller.ClearSpeakers()
		fmt.Fprint(c, "OK speakers cleared\n")
	case bus.CmdTranscript:
		d.writeTranscript(c)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) startSession(c net.Conn) {
	cfg := d.manager.GetConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(c, "ERR config: %v\n", err)
		return
	}

	d.mu.Lock()
	d.transcript = nil
	n := d.notifier
	d.mu.Unlock()

	if err := d.controller.Start(cfg.ToSessionOptions()); err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}

	go n.RecordingStarted()
	fmt.Fprint(c, "OK recording\n")
}

func (d *Daemon) stopSession(c net.Conn) {
	if d.controller.State() == session.Idle {
		fmt.Fprint(c, "ERR no active session\n")
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, drainTimeout)
	defer cancel()
	if err := d.controller.Stop(ctx); err != nil {
		fmt.Fprintf(c, "ERR drain: %v\n", err)
		return
	}

	d.mu.Lock()
	n := d.notifier
	fragments := len(d.transcript)
	d.mu.Unlock()

	go n.RecordingStopped()
	fmt.Fprintf(c, "OK stopped fragments=%d\n", fragments)
}

func (d *Daemon) writeStatus(c net.Conn) {
	d.mu.Lock()
	fragments := len(d.transcript)
	d.mu.Unlock()

	fmt.Fprintf(c, "STATUS state=%s fragments=%d speakers=%d\n",
		d.controller.State(), fragments, len(d.controller.Speakers()))
}

func (d *Daemon) writeSpeakers(c net.Conn) {
	speakers := d.controller.Speakers()
	fmt.Fprintf(c, "OK speakers count=%d\n", len(speakers))
	for _, s := range speakers {
		fmt.Fprintf(c, "%s\t%s\t%s\tsegments=%d\n", s.ID, s.DisplayName, s.Color, s.SegmentCount)
	}
}

func (d *Daemon) writeTranscript(c net.Conn) {
	d.mu.Lock()
	fragments := make([]session.Fragment, len(d.transcript))
	copy(fragments, d.transcript)
	d.mu.Unlock()

	fmt.Fprintf(c, "OK transcript fragments=%d\n", len(fragments))
	for _, f := range fragments {
		fmt.Fprintf(c, "%s\n", renderFragment(f))
	}
}

// renderFragment formats one transcript line, prefixed with the speakers the
// provider attributed to the chunk.
func renderFragment(f session.Fragment) string {
	if len(f.Speakers) == 0 {
		return f.Text
	}
	names := make([]string, 0, len(f.Speakers))
	for _, s := range f.Speakers {
		names = append(names, s.DisplayName)
	}
	return fmt.Sprintf("[%s] %s", strings.Join(names, ", "), f.Text)
}
