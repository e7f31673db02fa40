package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/emulator"
	"streamplays.tv/internal/input"
)

func main() {
	var (
		url   = flag.String("url", "ws://127.0.0.1:9001/ws", "viewer ws url")
		token = flag.String("token", "", "admin token for keyboard control (or set SP_ADMIN_TOKEN)")
		press = flag.String("press", "", "button to press and release once connected (a, b, up, start, ...)")
		hold  = flag.Duration("hold", 100*time.Millisecond, "how long -press holds the button")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags|log.Lmicroseconds)

	tok := strings.TrimSpace(*token)
	if tok == "" {
		tok = strings.TrimSpace(os.Getenv("SP_ADMIN_TOKEN"))
	}
	header := http.Header{}
	if tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if name := strings.ToLower(strings.TrimSpace(*press)); name != "" {
		b, ok := input.ButtonByName(name)
		if !ok {
			logger.Fatalf("unknown button %q", name)
		}
		go pressOnce(conn, emulator.KeyBit(b), *hold, logger)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	var video, audio uint64
	defer func() { logger.Printf("video=%d audio=%d", video, audio) }()
	for {
		typ, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Printf("read: %v", err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		m, ok := broadcast.Decode(frame)
		if !ok {
			continue
		}
		switch m.Kind {
		case broadcast.KindVideo:
			video++
		case broadcast.KindAudio:
			audio++
		default:
			logger.Printf("%s %s", m.Kind, m.Payload)
		}
	}
}

// pressOnce sends a press then a release control frame. Writes from this
// goroutine are the only writes on conn.
func pressOnce(conn *websocket.Conn, key uint8, hold time.Duration, logger *log.Logger) {
	down := broadcast.Control{Press: true, Key: key}
	if err := conn.WriteMessage(websocket.BinaryMessage, down.Encode()); err != nil {
		logger.Printf("press: %v", err)
		return
	}
	time.Sleep(hold)
	up := broadcast.Control{Key: key}
	if err := conn.WriteMessage(websocket.BinaryMessage, up.Encode()); err != nil {
		logger.Printf("release: %v", err)
		return
	}
	logger.Printf("sent press/release for key %d", key)
}
