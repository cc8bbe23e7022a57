package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiyo-e/pairlane/internal/config"
	"github.com/kiyo-e/pairlane/internal/e2ee"
	"github.com/kiyo-e/pairlane/internal/files"
	"github.com/kiyo-e/pairlane/internal/protocol"
	"github.com/kiyo-e/pairlane/internal/signalclient"
	"github.com/kiyo-e/pairlane/internal/transfer"
	"github.com/kiyo-e/pairlane/internal/ui"
)

var (
	flagEndpoint      string
	flagSTUN          string
	flagNoEncrypt     bool
	flagStayOpen      bool
	flagMaxConcurrent int
)

var sendCmd = &cobra.Command{
	Use:     "send <FILE> [ROOM_ID_OR_URL]",
	Aliases: []string{"s"},
	Short:   "Send a file to receivers in a room",
	Long: `Send a file directly to receivers over WebRTC.

Without a room argument a new room is created and its shareable link is
printed. End-to-end encryption is on by default; the key travels in the
link's URL fragment and never reaches the server.

Examples:
  pairlane send file.txt
  pairlane send file.txt ROOMID
  pairlane send --stay-open file.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(args)
	},
}

func runSend(args []string) error {
	info, err := files.Stat(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Options{Endpoint: flagEndpoint, STUNServer: flagSTUN})
	if err != nil {
		return err
	}
	cid := cfg.Identity.Cid

	var roomID string
	var key []byte
	if len(args) == 2 {
		input, err := ParseRoomInput(args[1])
		if err != nil {
			return err
		}
		if input.Endpoint != "" && flagEndpoint == "" {
			cfg.Endpoint = input.Endpoint
		}
		roomID = input.RoomID
		key = input.Key
	} else {
		stop := ui.RunConnectionSpinner("Creating room...")
		roomID, err = signalclient.CreateRoom(context.Background(), cfg.APIRoomsURL(), cid, flagMaxConcurrent)
		stop()
		if err != nil {
			return err
		}
	}

	encrypt := !flagNoEncrypt
	var cipher *e2ee.Cipher
	if encrypt {
		if key == nil {
			key, err = e2ee.GenerateKey()
			if err != nil {
				return err
			}
		}
		cipher, err = e2ee.NewCipher(key)
		if err != nil {
			return err
		}
	} else {
		key = nil
	}

	fmt.Printf("\n%s Sending %s (%s, %s)\n\n", ui.IconSend, ui.BoldStyle.Render(info.Name), files.FormatSize(info.Size), info.Mime)
	ui.RenderRoomInfo(roomID, cfg.RoomURL(roomID, key), encrypt)
	fmt.Println()

	wsURL, err := cfg.WebSocketURL(roomID, cid)
	if err != nil {
		return err
	}
	client := signalclient.NewClient(wsURL)
	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	handler := signalclient.NewHandler(client)
	go handler.Run()

	engine := transfer.NewOffererEngine(client, cfg, info, cipher)
	defer engine.Close()

	board := ui.NewPeerProgress()
	completed := make(chan string, 16)
	engine.OnProgress = func(peerID string, sent, total int64) {
		board.Update(peerID, sent)
	}
	engine.OnComplete = func(peerID string) {
		board.Complete(peerID)
		completed <- peerID
	}

	return senderLoop(handler, engine, board, info, completed)
}

// senderLoop drives the offerer engine from the handler's typed channels.
// The single loop serialises all engine signalling calls.
func senderLoop(handler *signalclient.Handler, engine *transfer.OffererEngine, board *ui.PeerProgress, info *files.FileInfo, completed <-chan string) error {
	redraw := time.NewTicker(100 * time.Millisecond)
	defer redraw.Stop()

	started := time.Now()
	transfers := 0
	lastLines := 0

	repaint := func() {
		for i := 0; i < lastLines; i++ {
			fmt.Print("\033[A\033[2K")
		}
		view := board.View()
		fmt.Print(view)
		lastLines = board.Lines()
	}

	for {
		select {
		case role := <-handler.Role:
			if role.Role != protocol.RoleOfferer {
				return fmt.Errorf("this client is not the sender; the room already has one")
			}

		case <-handler.Peers:
			// Count changes are visible through the progress board.

		case <-handler.Wait:
			// Senders are never queued; ignore.

		case peerID := <-handler.Start:
			if peerID == "" {
				continue
			}
			board.Track(peerID, info.Size)
			if err := engine.HandleStart(peerID); err != nil {
				ui.PrintErrorf("start peer %s: %v", peerID, err)
			}

		case msg := <-handler.Answer:
			if err := engine.HandleAnswer(msg); err != nil {
				ui.PrintErrorf("answer from %s: %v", msg.From, err)
			}

		case msg := <-handler.Candidate:
			engine.HandleCandidate(msg)

		case peerID := <-handler.PeerLeft:
			engine.HandlePeerLeft(peerID)
			board.Drop(peerID)

		case <-completed:
			transfers++
			repaint()
			if flagStayOpen {
				continue
			}
			fmt.Println()
			duration := time.Since(started)
			speed := float64(info.Size) / (1024 * 1024) / duration.Seconds()
			ui.RenderTransferSummary(ui.IconComplete+" Transfer Summary", ui.TransferSummary{
				Status:    "Complete",
				File:      info.Name,
				TotalSize: files.FormatSize(info.Size),
				Receivers: transfers,
				Duration:  fmt.Sprintf("%.2f seconds", duration.Seconds()),
				Speed:     fmt.Sprintf("%.2f MiB/s", speed),
			})
			return nil

		case <-redraw.C:
			repaint()

		case <-handler.Closed:
			return transfer.WrapError("signaling", transfer.ErrPeerDisconnected, "connection to server lost")
		}
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&flagEndpoint, "endpoint", "e", "", "Override signaling endpoint")
	sendCmd.Flags().StringVar(&flagSTUN, "stun", "", "Custom STUN server")
	sendCmd.Flags().BoolVar(&flagNoEncrypt, "no-encrypt", false, "Disable E2E encryption (default: enabled)")
	sendCmd.Flags().BoolVar(&flagStayOpen, "stay-open", false, "Keep serving receivers after a successful send")
	sendCmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 0, "Concurrent receiver ceiling for a new room (1-10)")
}
