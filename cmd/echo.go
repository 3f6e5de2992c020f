// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	gdscodec "github.com/packetd/gosocknet/codec/gds"
	gdsmod "github.com/packetd/gosocknet/modules/gds"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"
)

type echoCmdConfig struct {
	Addr      string
	Message   string
	ChunkSize int
	Timeout   time.Duration
}

var echoConfig echoCmdConfig

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Connect to a gds listener, send one frame and print whatever comes back",
	Run: func(cmd *cobra.Command, args []string) {
		p := pool.New(echoConfig.ChunkSize)
		ch := channel.NewClient("tcp", echoConfig.Addr, p)

		if err := ch.AddModule(gdsmod.New(p, true)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to install gds module: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), echoConfig.Timeout)
		defer cancel()
		if err := ch.Connect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", echoConfig.Addr, err)
			os.Exit(1)
		}
		defer func() { _ = ch.Disconnect() }()

		// registered after Connect so the gds module's own "gds.decode" stage
		// (installed during Connect) runs first and hands us a decoded Frame
		received := make(chan string, 1)
		pipeline.AddIncomingLast[*gdscodec.Frame](ch.Pipeline(), "echo.capture", func(c any, f *gdscodec.Frame, box *pipeline.Box) {
			defer f.Dispose()
			reply := ""
			if f.Body != nil {
				raw, _ := f.Body.Read(int(f.Body.Len()))
				reply = string(raw)
			}
			select {
			case received <- reply:
			default:
			}
		})

		body := buffer.New(p)
		if err := body.Write([]byte(echoConfig.Message)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to build frame body: %v\n", err)
			os.Exit(1)
		}

		frame := &gdscodec.Frame{StreamID: 1, Type: gdscodec.FrameFull, IsComplete: true, Body: body}
		if err := ch.Send(frame); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send frame: %v\n", err)
			os.Exit(1)
		}

		select {
		case reply := <-received:
			fmt.Println(reply)
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "timed out waiting for a reply")
			os.Exit(1)
		}
	},
	Example: "# gosocknet echo --addr 127.0.0.1:9000 --message 'hello'",
}

func init() {
	echoCmd.Flags().StringVar(&echoConfig.Addr, "addr", "127.0.0.1:9000", "Address of a gds listener")
	echoCmd.Flags().StringVar(&echoConfig.Message, "message", "ping", "Message to send as the frame body")
	echoCmd.Flags().IntVar(&echoConfig.ChunkSize, "chunk-size", 4096, "Pool chunk size, must match the listener's")
	echoCmd.Flags().DurationVar(&echoConfig.Timeout, "timeout", 5*time.Second, "Connect and roundtrip timeout")
	rootCmd.AddCommand(echoCmd)
}
