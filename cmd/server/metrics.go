package main

import (
	"fmt"
	"net/http"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/chat"
	"streamplays.tv/internal/emulator"
	"streamplays.tv/internal/persistence/offsite"
	"streamplays.tv/internal/transport/ws"
)

type metricsSources struct {
	engine  *arbitration.Engine
	driver  *emulator.Driver
	encoder *emulator.FrameEncoder
	hub     *broadcast.Hub
	viewers *ws.Server
	chat    *chat.Client
	idx     runtimeIndex
	mirror  *offsite.Uploader
	saves   *saveWriter
}

func gauge(rw http.ResponseWriter, name, help string, v any) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	fmt.Fprintf(rw, "%s %v\n", name, v)
}

func counter(rw http.ResponseWriter, name, help string, v any) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s counter\n", name)
	fmt.Fprintf(rw, "%s %v\n", name, v)
}

func writeMetrics(rw http.ResponseWriter, m metricsSources) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	if m.driver != nil {
		gauge(rw, "streamplays_emulator_fps", "Measured emulation frames per second.", m.driver.FPS())
		counter(rw, "streamplays_emulator_frames_total", "Frames advanced since start.", m.driver.Frames())
		paused := 0
		if m.driver.Paused() {
			paused = 1
		}
		gauge(rw, "streamplays_emulator_paused", "1 while the driver is paused.", paused)
		counter(rw, "streamplays_save_dropped_total", "Save states dropped because the writer was busy.", m.driver.SaveDrops())
	}
	if m.encoder != nil {
		counter(rw, "streamplays_video_encoded_total", "Frames encoded to JPEG.", m.encoder.Encoded())
		counter(rw, "streamplays_video_dropped_total", "Frames skipped because the encoder was busy.", m.encoder.Dropped())
	}
	if m.engine != nil {
		q := m.engine.Queue().Stats()
		gauge(rw, "streamplays_queue_depth", "Inputs waiting in the arbitration queue.", m.engine.QueueDepth())
		counter(rw, "streamplays_inputs_total", "Inputs applied to the game.", m.engine.TotalInputs())
		counter(rw, "streamplays_queue_accepted_total", "Presses accepted into the queue.", q.Accepted)
		counter(rw, "streamplays_queue_rate_limited_total", "Submissions rejected by the per-user rate limit.", q.RateLimited)
		counter(rw, "streamplays_queue_throttled_total", "Submissions rejected by the Start throttle.", q.Throttled)
		counter(rw, "streamplays_queue_evicted_total", "Queued presses evicted when the queue was full.", q.Evicted)
		gauge(rw, "streamplays_queue_users", "Distinct users seen by the rate limiter.", m.engine.Queue().Users())
	}
	if m.hub != nil {
		h := m.hub.Stats()
		gauge(rw, "streamplays_broadcast_subscribers", "Active broadcast subscribers.", h.Subscribers)
		counter(rw, "streamplays_broadcast_published_total", "Messages published to the hub.", h.Published)
		counter(rw, "streamplays_broadcast_lagged_total", "Messages skipped by lagging subscribers.", h.Lagged)
	}
	if m.viewers != nil {
		v := m.viewers.Stats()
		gauge(rw, "streamplays_viewers", "Connected viewer websockets.", v.Viewers)
		counter(rw, "streamplays_viewer_frames_sent_total", "Frames written to viewers.", v.Sent)
		counter(rw, "streamplays_viewer_controls_total", "Control frames applied from privileged viewers.", v.Controls)
	}
	if m.chat != nil {
		c := m.chat.Stats()
		counter(rw, "streamplays_chat_messages_total", "Chat messages received after backfill.", c.Received)
		counter(rw, "streamplays_chat_submitted_total", "Chat messages that queued at least one press.", c.Submitted)
		counter(rw, "streamplays_chat_connects_total", "Successful chat websocket connections.", c.Connects)
		gauge(rw, "streamplays_chat_backoff_seconds", "Current chat reconnect backoff.", m.chat.Backoff().Seconds())
	}
	if m.saves != nil {
		counter(rw, "streamplays_saves_written_total", "Save files written.", m.saves.written.Load())
		counter(rw, "streamplays_saves_failed_total", "Save files that failed to write.", m.saves.failed.Load())
	}
	if m.idx != nil {
		s := m.idx.Stats()
		gauge(rw, "streamplays_index_queue_depth", "Index writer queue depth.", s.QueueDepth)
		counter(rw, "streamplays_index_dropped_total", "Index rows dropped because the writer fell behind.", s.DropInputTotal+s.DropSaveTotal+s.DropSessionTotal)
	}
	if m.mirror != nil {
		s := m.mirror.Stats()
		gauge(rw, "streamplays_offsite_queue_depth", "Offsite upload queue depth.", s.QueueDepth)
		counter(rw, "streamplays_offsite_uploaded_total", "Files uploaded offsite.", s.Uploaded)
		counter(rw, "streamplays_offsite_failed_total", "Offsite uploads that failed after retry.", s.Failed)
		counter(rw, "streamplays_offsite_dropped_total", "Files not uploaded because the queue was full.", s.Dropped)
	}
}
