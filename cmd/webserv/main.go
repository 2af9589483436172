// Copyright the webserv contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command webserv is the CLI entry point: one positional argument, a
// config file path, serving it until SIGINT/SIGTERM.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/FirePh0enix/webserv/config"
	"github.com/FirePh0enix/webserv/internal/wlog"
	"github.com/FirePh0enix/webserv/netserv"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		wlog.Log().Sugar().Debugf(format, args...)
	})); err != nil {
		wlog.Log().Warn("could not set GOMAXPROCS", zap.Error(err))
	}

	root := &cobra.Command{
		Use:   "webserv <config>",
		Short: "A single-threaded, epoll-driven HTTP/1.1 serving engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}

	if err := root.Execute(); err != nil {
		wlog.Log().Fatal("fatal startup error", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	servers, diags := config.LoadFile(configPath)
	if len(diags) > 0 {
		diags.Render(os.Stderr)
		return fmt.Errorf("webserv: configuration error")
	}

	listeners, err := buildListeners(servers)
	if err != nil {
		return err
	}

	loop, err := netserv.NewEventLoop(listeners)
	if err != nil {
		return fmt.Errorf("webserv: %w", err)
	}

	for _, l := range listeners {
		wlog.Log().Info("listening",
			zap.String("addr", l.Addr),
			zap.String("default_host", l.DefaultHost))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		wlog.Log().Info("shutdown signal received")
		loop.Shutdown()
	}()

	if err := loop.Run(); err != nil {
		return fmt.Errorf("webserv: event loop: %w", err)
	}
	return nil
}

// buildListeners groups the validated ServerConfigs by listen address: every
// config sharing one `listen` directive is added as a virtual host on the
// same netserv.Server, per §3.
func buildListeners(servers []config.ServerConfig) ([]*netserv.Server, error) {
	byAddr := map[string]*netserv.Server{}
	var order []string

	for _, srv := range servers {
		addr := srv.ListenAddr()
		s, ok := byAddr[addr]
		if !ok {
			var err error
			s, err = netserv.NewServer(srv.ListenHost, srv.ListenPort)
			if err != nil {
				return nil, fmt.Errorf("webserv: %w", err)
			}
			byAddr[addr] = s
			order = append(order, addr)
		}
		s.AddHost(srv.ServerName, srv)
	}

	listeners := make([]*netserv.Server, 0, len(order))
	for _, addr := range order {
		listeners = append(listeners, byAddr[addr])
	}
	return listeners, nil
}
