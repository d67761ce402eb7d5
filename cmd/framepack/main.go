// Program framepack packs and inspects raw frames of the provider wire
// protocol, for manual testing against a supervisor or a provider.
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/creachadair/command"

	provider "github.com/thinknode/thinknode-provider-ipc-net"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
)

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "Utilities for packing and inspecting provider wire frames.",
		Commands: []*command.C{
			{
				Name:  "pack",
				Usage: "<action> <hex-body>",
				Help: `Pack an action name and a hex-encoded body into a frame, written to stdout.

Action is one of: register, function, progress, result, failure, ping, pong.
hex-body may be empty to produce a frame with no body.
`,
				Run: func(env *command.Env) error {
					if len(env.Args) != 2 {
						return env.Usagef("expected exactly 2 arguments")
					}
					action, err := parseAction(env.Args[0])
					if err != nil {
						return err
					}
					body, err := hex.DecodeString(env.Args[1])
					if err != nil {
						return fmt.Errorf("invalid hex body: %w", err)
					}
					fr := &frame.Frame{Version: frame.Version, Action: action, Body: body}
					enc, err := fr.Encode()
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(enc)
					return err
				},
			},
			{
				Name:  "inspect",
				Usage: "< frame-bytes",
				Help:  "Read one or more frames from stdin and print their header fields and hex body.",
				Run: func(env *command.Env) error {
					r := bufio.NewReader(os.Stdin)
					for {
						var fr frame.Frame
						if _, err := fr.ReadFrom(r); err != nil {
							if errors.Is(err, io.EOF) {
								return nil
							}
							return err
						}
						fmt.Printf("version=%d action=%s length=%d body=%s%s\n",
							fr.Version, fr.Action, len(fr.Body), hex.EncodeToString(fr.Body), describeBody(fr))
					}
				},
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

// describeBody returns a human-readable annotation for frame bodies whose
// structure inspect can decode, or the empty string for bodies it only
// prints as hex.
func describeBody(fr frame.Frame) string {
	if fr.Action != frame.ActionRegister {
		return ""
	}
	reg, err := provider.DecodeRegisterBody(fr.Body)
	if err != nil {
		return fmt.Sprintf(" (undecodable register body: %v)", err)
	}
	return fmt.Sprintf(" pid=%q", reg.PID)
}

func parseAction(s string) (frame.Action, error) {
	switch strings.ToLower(s) {
	case "register":
		return frame.ActionRegister, nil
	case "function":
		return frame.ActionFunction, nil
	case "progress":
		return frame.ActionProgress, nil
	case "result":
		return frame.ActionResult, nil
	case "failure":
		return frame.ActionFailure, nil
	case "ping":
		return frame.ActionPing, nil
	case "pong":
		return frame.ActionPong, nil
	default:
		if n, err := strconv.ParseUint(s, 10, 8); err == nil {
			return frame.DecodeAction(byte(n))
		}
		return 0, fmt.Errorf("unknown action %q", s)
	}
}
