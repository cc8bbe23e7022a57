package cli

import (
	"fmt"
	"os"
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
	flagRecvEndpoint string
	flagRecvSTUN     string
	flagOutputDir    string
	flagKey          string
	flagRecvStay     bool
)

var receiveCmd = &cobra.Command{
	Use:     "receive <ROOM_ID_OR_URL>",
	Aliases: []string{"r", "recv"},
	Short:   "Receive a file from a room",
	Long: `Join a room as a receiver and save the incoming file.

The room argument accepts a bare room id, an id with a key fragment
(ROOMID#k=...) or the full shareable link. Encrypted transfers need the
key from the link fragment or --key.

Examples:
  pairlane receive ROOMID
  pairlane receive "https://getpairlane.com/r/ROOMID#k=..."
  pairlane receive --output-dir ~/Downloads ROOMID`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReceive(args[0])
	},
}

func runReceive(roomArg string) error {
	input, err := ParseRoomInput(roomArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Options{Endpoint: flagRecvEndpoint, STUNServer: flagRecvSTUN})
	if err != nil {
		return err
	}
	if input.Endpoint != "" && flagRecvEndpoint == "" {
		cfg.Endpoint = input.Endpoint
	}

	key := input.Key
	if flagKey != "" {
		key, err = e2ee.DecodeKey(flagKey)
		if err != nil {
			return err
		}
	}
	var cipher *e2ee.Cipher
	if key != nil {
		cipher, err = e2ee.NewCipher(key)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	wsURL, err := cfg.WebSocketURL(input.RoomID, cfg.Identity.Cid)
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

	engine := transfer.NewAnswererEngine(client, cfg, flagOutputDir, cipher)
	defer engine.Close()

	completed := make(chan string, 1)
	failed := make(chan string, 1)
	board := ui.NewPeerProgress()
	engine.OnProgress = func(received, total int64) {
		board.Track("transfer", total)
		board.Update("transfer", received)
	}
	engine.OnComplete = func(path string) {
		board.Complete("transfer")
		completed <- path
	}
	engine.OnFailed = func(reason string) { failed <- reason }

	fmt.Printf("%s Joining room %s\n", ui.IconReceive, ui.BoldStyle.Render(input.RoomID))

	return receiverLoop(handler, engine, board, completed, failed)
}

// receiverLoop drives the answerer engine from the handler's typed
// channels.
func receiverLoop(handler *signalclient.Handler, engine *transfer.AnswererEngine, board *ui.PeerProgress, completed, failed <-chan string) error {
	redraw := time.NewTicker(100 * time.Millisecond)
	defer redraw.Stop()

	lastLines := 0
	repaint := func() {
		for i := 0; i < lastLines; i++ {
			fmt.Print("\033[A\033[2K")
		}
		fmt.Print(board.View())
		lastLines = board.Lines()
	}

	for {
		select {
		case role := <-handler.Role:
			if role.Role != protocol.RoleAnswerer {
				return fmt.Errorf("this client is the sender; use 'pairlane send' instead")
			}

		case position := <-handler.Wait:
			if position > 0 {
				fmt.Printf("%s Waiting for a free slot (position %d)\n", ui.IconWaiting, position)
			} else {
				fmt.Printf("%s Waiting for the sender\n", ui.IconWaiting)
			}

		case <-handler.Peers:
			// Informational only.

		case <-handler.Start:
			if err := engine.HandleStart(); err != nil {
				ui.PrintErrorf("prepare connection: %v", err)
			}

		case msg := <-handler.Offer:
			if err := engine.HandleOffer(msg); err != nil {
				ui.PrintErrorf("offer from %s: %v", msg.From, err)
			}

		case msg := <-handler.Candidate:
			engine.HandleCandidate(msg)

		case <-handler.PeerLeft:
			// Receivers are not told about other receivers; ignore.

		case path := <-completed:
			repaint()
			fmt.Println()
			info, err := os.Stat(path)
			size := "unknown"
			if err == nil {
				size = files.FormatSize(info.Size())
			}
			ui.RenderTransferSummary(ui.IconComplete+" Transfer Summary", ui.TransferSummary{
				Status:    "Complete",
				File:      path,
				TotalSize: size,
			})
			if flagRecvStay {
				continue
			}
			return nil

		case reason := <-failed:
			repaint()
			fmt.Println()
			if flagRecvStay {
				ui.PrintError(reason)
				continue
			}
			return fmt.Errorf("%s", reason)

		case <-redraw.C:
			repaint()

		case <-handler.Closed:
			return transfer.WrapError("signaling", transfer.ErrPeerDisconnected, "connection to server lost")
		}
	}
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&flagRecvEndpoint, "endpoint", "e", "", "Override signaling endpoint")
	receiveCmd.Flags().StringVar(&flagRecvSTUN, "stun", "", "Custom STUN server")
	receiveCmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", ".", "Output directory")
	receiveCmd.Flags().StringVarP(&flagKey, "key", "k", "", "Base64url decryption key (overrides #k=...)")
	receiveCmd.Flags().BoolVar(&flagRecvStay, "stay-open", false, "Keep running after a successful receive")
}
