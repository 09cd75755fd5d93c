// Package dispatch turns inbound chat events into registry operations and
// replies. Command events are recognized by a configurable prefix; every
// other event goes through the capture-then-repost path.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/memebox/memebox/internal/blob"
	"github.com/memebox/memebox/internal/registry"
	"github.com/memebox/memebox/pkg/platform"
)

// Options tunes the handler.
type Options struct {
	CommandPrefix string           // default "/meme"
	ListCap       int              // default 10
	Now           func() time.Time // default time.Now, injectable for tests
}

// Handler processes inbound events against one registry.
type Handler struct {
	reg     *registry.Registry
	log     *zap.Logger
	prefix  string
	listCap int
	now     func() time.Time
}

// New returns a handler over reg.
func New(reg *registry.Registry, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CommandPrefix == "" {
		opts.CommandPrefix = "/meme"
	}
	if opts.ListCap <= 0 {
		opts.ListCap = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		reg:     reg,
		log:     log,
		prefix:  opts.CommandPrefix,
		listCap: opts.ListCap,
		now:     opts.Now,
	}
}

// Handle processes one inbound event. ok=false means the event is not
// ours and should continue on to other handlers.
func (h *Handler) Handle(ctx context.Context, ev platform.Event) (platform.Reply, bool) {
	if args, ok := h.commandArgs(ev.Text); ok {
		return h.handleCommand(ctx, ev, args), true
	}
	return h.handleMessage(ctx, ev)
}

// commandArgs strips the command prefix and splits the rest; ok=false
// when the text is not a command at all.
func (h *Handler) commandArgs(text string) ([]string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], h.prefix) {
		return nil, false
	}
	return fields[1:], true
}

func (h *Handler) handleCommand(ctx context.Context, ev platform.Event, args []string) platform.Reply {
	verb := "help"
	if len(args) > 0 {
		verb = strings.ToLower(args[0])
		args = args[1:]
	}
	switch verb {
	case "add":
		return h.cmdAdd(ctx, ev)
	case "name":
		return h.cmdName(args)
	case "show":
		return h.cmdShow(args)
	case "list":
		return h.cmdList()
	case "del":
		return h.cmdDel(args)
	case "reload":
		return h.cmdReload()
	default:
		return platform.Reply{Text: h.helpText()}
	}
}

func (h *Handler) cmdAdd(ctx context.Context, ev platform.Event) platform.Reply {
	if img, ok := ev.FirstImage(); ok {
		return h.ingest(ctx, img)
	}
	h.reg.ArmCapture(ev.Conversation, ev.Participant, h.now())
	secs := int(h.reg.SessionTTL().Seconds())
	return platform.Reply{Text: fmt.Sprintf("okay — send the image within %d seconds and I'll register it", secs)}
}

func (h *Handler) cmdName(args []string) platform.Reply {
	if len(args) < 2 {
		return platform.Reply{Text: "usage: " + h.prefix + " name <KEY> <alias>"}
	}
	d := blob.Digest(strings.ToUpper(strings.TrimSpace(args[0])))
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if err := h.reg.Bind(d, name); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return platform.Reply{Text: fmt.Sprintf("unknown KEY: %s\nregister it first with %s add", d, h.prefix)}
		}
		h.log.Error("bind failed", zap.Error(err))
		return platform.Reply{Text: "bind failed: " + err.Error()}
	}
	return platform.Reply{Text: fmt.Sprintf("alias set: %s -> %s", name, d)}
}

func (h *Handler) cmdShow(args []string) platform.Reply {
	if len(args) < 1 {
		return platform.Reply{Text: "usage: " + h.prefix + " show <KEY|alias>"}
	}
	q := strings.TrimSpace(strings.Join(args, " "))
	info, err := h.reg.Show(q)
	if err != nil {
		return platform.Reply{Text: "not found: " + q}
	}
	a := info.Alias
	if a == "" {
		a = "(none)"
	}
	f := info.Filename
	if f == "" {
		f = "(missing)"
	}
	return platform.Reply{Text: fmt.Sprintf("KEY: %s\nalias: %s\nfile: %s", info.Digest, a, f)}
}

func (h *Handler) cmdList() platform.Reply {
	l := h.reg.List()
	if len(l.Digests) == 0 {
		return platform.Reply{Text: "nothing registered yet. use: " + h.prefix + " add"}
	}

	// Display policy: aliased entries first, then bare digests, capped.
	covered := make(map[blob.Digest]bool, len(l.Aliases))
	for _, b := range l.Aliases {
		covered[b.Digest] = true
	}
	lines := make([]string, 0, h.listCap)
	for _, b := range l.Aliases {
		if len(lines) >= h.listCap {
			break
		}
		lines = append(lines, fmt.Sprintf("%s -> %s", b.Alias, b.Digest))
	}
	for _, d := range l.Digests {
		if len(lines) >= h.listCap {
			break
		}
		if covered[d] {
			continue
		}
		lines = append(lines, string(d))
	}
	out := "registered:\n" + strings.Join(lines, "\n")
	if len(l.Digests) > h.listCap {
		out += fmt.Sprintf("\n… %d total, showing first %d", len(l.Digests), h.listCap)
	}
	return platform.Reply{Text: out}
}

func (h *Handler) cmdDel(args []string) platform.Reply {
	if len(args) < 1 {
		return platform.Reply{Text: "usage: " + h.prefix + " del <KEY|alias>"}
	}
	q := strings.TrimSpace(strings.Join(args, " "))
	res, err := h.reg.Delete(q)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return platform.Reply{Text: "not found: " + q}
		}
		h.log.Error("delete failed", zap.Error(err))
		return platform.Reply{Text: "delete failed: " + err.Error()}
	}
	return platform.Reply{Text: fmt.Sprintf("deleted: %s (KEY=%s)", q, res.Digest)}
}

func (h *Handler) cmdReload() platform.Reply {
	stats, err := h.reg.Reload(false)
	if err != nil {
		h.log.Error("reload failed", zap.Error(err))
		return platform.Reply{Text: "reload failed: " + err.Error()}
	}
	return platform.Reply{Text: fmt.Sprintf("index rebuilt: %d entries (pruned %d stale aliases)", stats.Entries, stats.PrunedAliases)}
}

func (h *Handler) helpText() string {
	p := h.prefix
	return strings.Join([]string{
		"usage:",
		p + " add               register an image (attach it, or send it within 60s)",
		p + " name <KEY> <alias> bind an alias",
		p + " show <KEY|alias>   show details",
		p + " list               list entries",
		p + " del <KEY|alias>    delete an entry",
		p + " reload             rebuild the index",
	}, "\n")
}

// handleMessage implements the capture-then-repost path. An image from a
// sender with an open capture window is ingested, consuming the window
// whether or not the ingest works out. Otherwise the first image segment
// whose identifier matches a stored digest is reposted. Events with
// neither fall through.
func (h *Handler) handleMessage(ctx context.Context, ev platform.Event) (platform.Reply, bool) {
	if img, ok := ev.FirstImage(); ok {
		if h.reg.TakeCapture(ev.Conversation, ev.Participant, h.now()) {
			return h.ingest(ctx, img), true
		}
	}
	for _, seg := range ev.Images {
		if seg.File == "" {
			continue
		}
		if path, ok := h.reg.MatchAndFetch(seg.File); ok {
			return platform.Reply{ImagePath: path}, true
		}
	}
	return platform.Reply{}, false
}

func (h *Handler) ingest(ctx context.Context, seg platform.ImageSegment) platform.Reply {
	res, err := h.reg.Add(ctx, seg.Source())
	if err != nil {
		h.log.Warn("ingest failed", zap.Error(err))
		return platform.Reply{Text: "capture failed: " + err.Error()}
	}
	if res.Alias != "" {
		return platform.Reply{Text: fmt.Sprintf("registered: %s (alias: %s)", res.Digest, res.Alias)}
	}
	return platform.Reply{Text: fmt.Sprintf("registered: %s\nbind an alias with: %s name %s <alias>", res.Digest, h.prefix, res.Digest)}
}
