package mojang

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/rs/zerolog/log"
)

var DefaultJavaBinary = func() string {
	if goruntime.GOOS == "windows" {
		return "javaw.exe"
	}
	return "java"
}()

var placeholder = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// substitute replaces ${name} placeholders. Unknown names are left as they are.
func substitute(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

func collectArgs(args []Argument, env Environment) []string {
	res := make([]string, 0, len(args))
	for _, a := range args {
		if !Allowed(a.Rules, env) {
			continue
		}
		res = append(res, a.Values...)
	}
	return res
}

// Service endpoints can be pointed elsewhere through vars of the same name.
var serviceHostArgs = []string{
	"-Dminecraft.api.auth.host=${minecraft_auth_host}",
	"-Dminecraft.api.account.host=${minecraft_account_host}",
	"-Dminecraft.api.session.host=${minecraft_session_host}",
	"-Dminecraft.api.services.host=${minecraft_services_host}",
}

// command is a resolved game invocation.
type command struct {
	Bin  string
	Dir  string
	Args []string
}

func (d *Driver) buildCommand(m *Manifest, tree layout, req *nativecore.LaunchRequest) (*command, error) {
	cp, err := classpath(m, tree, d.env)
	if err != nil {
		return nil, err
	}

	vars := map[string]string{
		"classpath":           strings.Join(cp, string(os.PathListSeparator)),
		"classpath_separator": string(os.PathListSeparator),
		"library_directory":   filepath.Join(tree.root, "libraries"),
		"natives_directory":   tree.natives(m.ID),
		"version_name":        m.ID,
		"version_type":        m.Type,
		"assets_root":         tree.assets(),
		"game_assets":         tree.assets(),
		"assets_index_name":   m.Assets,
		"game_directory":      tree.root,
		"launcher_name":       "rslauncher",
		"launcher_version":    "1.0",
		"user_properties":     "{}",
	}
	for k, v := range req.Vars {
		vars[k] = v
	}

	args := make([]string, 0, 64)
	if req.Alloc > 0 {
		args = append(args, fmt.Sprintf("-Xms%dM", req.Alloc), fmt.Sprintf("-Xmx%dM", req.Alloc))
	}

	jvm := collectArgs(m.JVMArguments(), d.env)
	for _, a := range jvm {
		args = append(args, substitute(a, vars))
	}
	for _, a := range serviceHostArgs {
		name := a[strings.Index(a, "${")+2 : len(a)-1]
		if _, ok := vars[name]; ok {
			args = append(args, substitute(a, vars))
		}
	}
	args = append(args, req.ExtraArgs...)
	args = append(args, m.MainClass)
	for _, a := range collectArgs(m.GameArguments(), d.env) {
		args = append(args, substitute(a, vars))
	}

	return &command{
		Bin:  d.opts.JavaPath,
		Dir:  tree.root,
		Args: args,
	}, nil
}

// ExitError reports a game process that ended unsuccessfully.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("game exited with code %d", e.Code)
}

// pumpLines forwards r line by line until EOF. Lines have no length limit, so the
// pipe is always drained and the child never blocks on a full pipe.
func pumpLines(r io.Reader, emit func(string)) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			emit(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Warn().Err(err).Msg("error reading game output")
				io.Copy(io.Discard, r)
			}
			return
		}
	}
}

// Launch starts the game and streams its output to the log channel of the request.
// It returns once the process has exited, not when it has started; callers that need
// the start moment use OnStarted.
func (d *Driver) Launch(ctx context.Context, req *nativecore.LaunchRequest, events nativecore.Emitter) error {
	tree := layout{root: req.Root}
	m, err := d.resolve(ctx, tree, req.ID, false)
	if err != nil {
		return err
	}
	if m.MainClass == "" {
		return fmt.Errorf("manifest %s has no main class", req.ID)
	}

	c, err := d.buildCommand(m, tree, req)
	if err != nil {
		return err
	}
	if dir, ok := req.Vars["game_directory"]; ok && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(ctx, c.Bin, c.Args...)
	cmd.Dir = c.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting %s: %w", c.Bin, err)
	}
	log.Info().Msgf("Started %s with pid %d", req.ID, cmd.Process.Pid)
	if req.OnStarted != nil {
		req.OnStarted(cmd.Process.Pid)
	}

	channel := nativecore.LogChannel(req.UID)
	var wg sync.WaitGroup
	for _, pipe := range []io.Reader{stdout, stderr} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pumpLines(pipe, func(line string) { events.Emit(channel, line) })
		}()
	}
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
