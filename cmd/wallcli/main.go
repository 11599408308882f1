// wallcli logs in, prints the comment tree of one post and optionally
// replies to or likes a comment on the way.
//
//	wallcli -api http://localhost:8080 -email a@example.com -password secret -post 3
//	wallcli ... -post 3 -reply 10/11 -text "me too"
//	wallcli ... -post 3 -like 10
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"socialwall/internal/client"
	"socialwall/internal/commenttree"
	"socialwall/internal/utils"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

type options struct {
	api      string
	email    string
	password string
	postID   uint
	reply    string
	text     string
	like     string
	depth    int
}

func main() {
	var opts options
	var postID uint64
	flag.StringVar(&opts.api, "api", "http://localhost:8080", "API base URL")
	flag.StringVar(&opts.email, "email", "", "login email")
	flag.StringVar(&opts.password, "password", os.Getenv("WALLCLI_PASSWORD"), "login password (or WALLCLI_PASSWORD)")
	flag.Uint64Var(&postID, "post", 0, "post id")
	flag.StringVar(&opts.reply, "reply", "", "path of the comment to reply to, e.g. 10/11; empty for top level")
	flag.StringVar(&opts.text, "text", "", "comment text to submit")
	flag.StringVar(&opts.like, "like", "", "path of a comment to like or unlike")
	flag.IntVar(&opts.depth, "depth", 2, "reply levels to load")
	logLevel := flag.String("log", "warn", "log level")
	flag.Parse()
	opts.postID = uint(postID)

	if opts.email == "" || opts.postID == 0 {
		flag.Usage()
		os.Exit(2)
	}
	utils.InitLogger(*logLevel)
	defer utils.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		utils.Logger.Error("wallcli failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	api, err := client.New(opts.api, client.WithLogger(utils.Logger))
	if err != nil {
		return err
	}
	me, err := api.Login(ctx, opts.email, opts.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	tree := commenttree.New(api, opts.postID, commenttree.WithLogger(utils.Logger))
	defer tree.Close()

	if err := loadAll(ctx, tree, nil, opts.depth); err != nil {
		return err
	}

	if opts.text != "" {
		parent, err := parsePath(opts.reply)
		if err != nil {
			return err
		}
		if err := reveal(ctx, tree, parent); err != nil {
			return err
		}
		_, op, err := tree.Submit(ctx, parent, opts.text, *me)
		if err != nil {
			return err
		}
		// failures stay in the tree and are printed below
		op.Wait(ctx)
	}

	if opts.like != "" {
		path, err := parsePath(opts.like)
		if err != nil {
			return err
		}
		if err := reveal(ctx, tree, path); err != nil {
			return err
		}
		op, err := tree.ToggleLike(ctx, path)
		if err != nil {
			return err
		}
		if _, err := op.Wait(ctx); err != nil {
			return fmt.Errorf("like: %w", err)
		}
	}

	fmt.Fprintf(out, "post %d: %d comments\n", opts.postID, tree.Total())
	printEntries(out, tree.Entries(), 0)
	if tree.HasMore() {
		fmt.Fprintln(out, "(more comments)")
	}
	return nil
}

func parsePath(s string) (commenttree.Path, error) {
	s = strings.Trim(s, "/ ")
	if s == "" {
		return nil, nil
	}
	var p commenttree.Path
	for _, part := range strings.Split(s, "/") {
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid comment path %q", s)
		}
		p = append(p, uint(id))
	}
	return p, nil
}

// loadAll pages through the list under parent and then through the
// replies of each entry, depth levels down.
func loadAll(ctx context.Context, tree *commenttree.Store, parent commenttree.Path, depth int) error {
	if err := drain(ctx, tree, parent); err != nil {
		return err
	}
	if depth == 0 {
		return nil
	}
	for _, e := range children(tree, parent) {
		if e.Path == nil || e.ReplyTotal == 0 {
			continue
		}
		if err := loadAll(ctx, tree, e.Path, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func drain(ctx context.Context, tree *commenttree.Store, parent commenttree.Path) error {
	for {
		var started bool
		if len(parent) == 0 {
			started = tree.LoadTopLevel(ctx)
		} else {
			started = tree.LoadReplies(ctx, parent)
		}
		if !started {
			return nil
		}
		if err := tree.Wait(ctx, parent); err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
	}
}

func children(tree *commenttree.Store, parent commenttree.Path) []commenttree.Entry {
	if len(parent) == 0 {
		return tree.Entries()
	}
	e, err := tree.Find(parent)
	if err != nil {
		return nil
	}
	return e.Replies
}

// reveal makes sure every comment along path is loaded.
func reveal(ctx context.Context, tree *commenttree.Store, path commenttree.Path) error {
	for i := range path {
		if _, err := tree.Find(path[:i+1]); err == nil {
			continue
		}
		if err := drain(ctx, tree, path[:i]); err != nil {
			return err
		}
		if _, err := tree.Find(path[:i+1]); err != nil {
			if errors.Is(err, commenttree.ErrNotLoaded) {
				return fmt.Errorf("comment %d not found under %v", path[i], path[:i])
			}
			return err
		}
	}
	return nil
}

func printEntries(out io.Writer, es []commenttree.Entry, level int) {
	indent := strings.Repeat("  ", level)
	for _, e := range es {
		fmt.Fprintf(out, "%s%s\n", indent, describe(e))
		printEntries(out, e.Replies, level+1)
		if e.MoreReplies {
			fmt.Fprintf(out, "%s  (%d of %d replies loaded)\n", indent, len(e.Replies), e.ReplyTotal)
		}
	}
}

func describe(e commenttree.Entry) string {
	c := e.Comment
	switch {
	case e.Status == commenttree.Posting:
		return fmt.Sprintf("[posting] %s: %s", c.User.FullName(), text(c.Content))
	case e.Status == commenttree.PostFailed:
		return fmt.Sprintf("[failed: %v] %s: %s", e.Err, c.User.FullName(), text(c.Content))
	case c.IsDeleted:
		return fmt.Sprintf("#%d [deleted]", c.ID)
	}
	liked := ""
	if c.LikedByMe != nil {
		liked = ", liked"
	}
	return fmt.Sprintf("#%d %s: %s (%d likes%s)", c.ID, c.User.FullName(), text(c.Content), c.LikeCount, liked)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
