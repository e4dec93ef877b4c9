package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/api"
	"github.com/urfave/cli/v2"
)

var addr string

func printResponse(res *http.Response) error {
	defer res.Body.Close()
	slurp, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\nResponse: %s\n", res.Status, string(slurp))
	return nil
}

func send(method, path string, body interface{}) error {
	var r io.Reader
	if body != nil {
		marshalled, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(marshalled)
	}
	req, err := http.NewRequest(method, "http://"+addr+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return printResponse(res)
}

func screenFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "fullscreen", Usage: "Run the game fullscreen."},
		&cli.IntFlag{Name: "width", Usage: "Window width.", Value: launcher.DefaultWidth},
		&cli.IntFlag{Name: "height", Usage: "Window height.", Value: launcher.DefaultHeight},
	}
}

func screenFromFlags(ctx *cli.Context) launcher.Screen {
	if ctx.Bool("fullscreen") {
		return launcher.Fullscreen()
	}
	return launcher.Resolution(ctx.Int("width"), ctx.Int("height"))
}

func parseVersion(s string) (launcher.Version, error) {
	provider, vid, ok := strings.Cut(s, ":")
	if !ok || vid == "" {
		return launcher.Version{}, fmt.Errorf("version must look like <provider>:<id>, got %q", s)
	}
	v := launcher.Version{Provider: launcher.ParseProvider(provider), Vid: vid}
	if v.Provider == launcher.ProviderMojang {
		v.Mcv = vid
	}
	return v, nil
}

func listInstances() *cli.Command {
	return &cli.Command{
		Name:  "list-instances",
		Usage: "List the configured instances.",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodGet, "/instances", nil)
		},
	}
}

func addInstance() *cli.Command {
	return &cli.Command{
		Name:  "add-instance",
		Usage: "Create an instance.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name of the instance.", Required: true},
			&cli.StringFlag{Name: "version", Usage: "Version as <provider>:<id>, e.g. mojang:1.20.1.", Required: true},
			&cli.IntFlag{Name: "alloc", Usage: "Memory in megabytes.", Value: 2048},
			&cli.StringFlag{Name: "extra-args", Usage: "Extra JVM arguments."},
			&cli.StringFlag{Name: "path", Usage: "Instance directory, derived from the name when empty."},
		}, screenFlags()...),
		Action: func(ctx *cli.Context) error {
			version, err := parseVersion(ctx.String("version"))
			if err != nil {
				return err
			}
			extra, err := launcher.ParseExtraArgs(ctx.String("extra-args"))
			if err != nil {
				return err
			}
			return send(http.MethodPost, "/instances", &launcher.InstanceDraft{
				Name:      ctx.String("name"),
				Version:   version,
				Path:      ctx.String("path"),
				Screen:    screenFromFlags(ctx),
				Alloc:     ctx.Int("alloc"),
				ExtraArgs: extra,
			})
		},
	}
}

func updateInstance() *cli.Command {
	return &cli.Command{
		Name:      "update-instance",
		Usage:     "Change fields of an instance. Only the given flags are changed.",
		ArgsUsage: "<id>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "version"},
			&cli.IntFlag{Name: "alloc"},
			&cli.StringFlag{Name: "extra-args"},
		}, screenFlags()...),
		Action: func(ctx *cli.Context) error {
			id := ctx.Args().First()
			if id == "" {
				return fmt.Errorf("instance id is required")
			}

			var patch launcher.InstancePatch
			if ctx.IsSet("name") {
				name := ctx.String("name")
				patch.Name = &name
			}
			if ctx.IsSet("version") {
				version, err := parseVersion(ctx.String("version"))
				if err != nil {
					return err
				}
				patch.Version = &version
			}
			if ctx.IsSet("alloc") {
				alloc := ctx.Int("alloc")
				patch.Alloc = &alloc
			}
			if ctx.IsSet("extra-args") {
				extra, err := launcher.ParseExtraArgs(ctx.String("extra-args"))
				if err != nil {
					return err
				}
				patch.ExtraArgs = &extra
			}
			if ctx.IsSet("fullscreen") || ctx.IsSet("width") || ctx.IsSet("height") {
				screen := screenFromFlags(ctx)
				patch.Screen = &screen
			}
			return send(http.MethodPatch, "/instances/"+id, &patch)
		},
	}
}

func removeInstance() *cli.Command {
	return &cli.Command{
		Name:      "remove-instance",
		Usage:     "Remove an instance. Its directory is kept.",
		ArgsUsage: "<id>",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodDelete, "/instances/"+ctx.Args().First(), nil)
		},
	}
}

func selectInstance() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Select an instance, or clear the selection without an id.",
		ArgsUsage: "[id]",
		Action: func(ctx *cli.Context) error {
			req := api.SelectRequest{}
			if id := ctx.Args().First(); id != "" {
				req.ID = &id
			}
			return send(http.MethodPost, "/instances/select", req)
		},
	}
}

func setRoot() *cli.Command {
	return &cli.Command{
		Name:      "set-root",
		Usage:     "Change the game root directory.",
		ArgsUsage: "<path>",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodPut, "/settings", launcher.Settings{RootPath: ctx.Args().First()})
		},
	}
}

func setNickname() *cli.Command {
	return &cli.Command{
		Name:      "set-nickname",
		Usage:     "Change the player name.",
		ArgsUsage: "<nickname>",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodPut, "/profile", api.Profile{Nickname: ctx.Args().First()})
		},
	}
}

func listVersions() *cli.Command {
	return &cli.Command{
		Name:  "list-versions",
		Usage: "List the versions available from every source.",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodGet, "/versions", nil)
		},
	}
}

func launchSelected() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Launch the selected instance.",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodPost, "/launch", nil)
		},
	}
}

func cancelLaunch() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Abort the launch of an instance.",
		ArgsUsage: "<id>",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodPost, "/instances/"+ctx.Args().First()+"/cancel", nil)
		},
	}
}

func status() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the runtime status of instances.",
		Action: func(ctx *cli.Context) error {
			return send(http.MethodGet, "/status", nil)
		},
	}
}

func main() {
	commands := map[string]*cli.Command{
		"list-instances":  listInstances(),
		"add-instance":    addInstance(),
		"update-instance": updateInstance(),
		"remove-instance": removeInstance(),
		"select":          selectInstance(),
		"set-root":        setRoot(),
		"set-nickname":    setNickname(),
		"list-versions":   listVersions(),
		"launch":          launchSelected(),
		"cancel":          cancelLaunch(),
		"status":          status(),
	}

	names := make([]string, 0, len(commands))
	for name, command := range commands {
		if command.Name != name {
			panic(fmt.Sprintf("command %s's name didn't match", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)
	sorted := make([]*cli.Command, 0, len(names))
	for _, name := range names {
		sorted = append(sorted, commands[name])
	}

	app := &cli.App{
		Name:  "launcher_ctrl",
		Usage: "CLI interface for the launcher daemon",
		CommandNotFound: func(ctx *cli.Context, s string) {
			fmt.Println("command not found: ", s)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Usage:       "Launcher daemon address to connect to",
				Value:       "127.0.0.1:7878",
				EnvVars:     []string{"LAUNCHER_LISTEN"},
				Destination: &addr,
			},
		},
		Commands: sorted,
	}

	err := app.Run(os.Args)
	if err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}
