// Package main is the desktop plugin. It opens applications, captures the
// screen, logs moods, drives media keys and raises notifications using the
// tools each operating system ships with.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Request is the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Channel    string          `json:"channel"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response is the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings is the union of every action's config keys.
type Settings struct {
	App     string `json:"app"`
	URL     string `json:"url"`
	Dir     string `json:"dir"`
	Command string `json:"command"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type actionHandler func(req *Request, s Settings) (any, error)

var actionHandlers = map[string]actionHandler{
	"open-app":   openApp,
	"screenshot": screenshot,
	"log-mood":   logMood,
	"media":      media,
	"notify":     notify,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(nil, fmt.Errorf("failed to decode request: %w", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(nil, fmt.Errorf("unknown action: %s", req.Action))
		return
	}

	var s Settings
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &s); err != nil {
			writeResponse(nil, fmt.Errorf("invalid config: %w", err))
			return
		}
	}
	// Params override config for one-off invocations.
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &s); err != nil {
			writeResponse(nil, fmt.Errorf("invalid params: %w", err))
			return
		}
	}

	data, err := handler(&req, s)
	if err != nil {
		err = fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	writeResponse(data, err)
}

func writeResponse(data any, err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if data != nil {
		resp.Data, _ = json.Marshal(data)
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// appCommands resolves well-known application names per platform.
var appCommands = map[string]map[string][]string{
	"windows": {
		"messaging": {"cmd", "/c", "start", "whatsapp:"},
		"notepad":   {"notepad.exe"},
		"browser":   {"cmd", "/c", "start", "https://www.google.com"},
	},
	"darwin": {
		"messaging": {"open", "-a", "WhatsApp"},
		"notepad":   {"open", "-a", "TextEdit"},
		"browser":   {"open", "https://www.google.com"},
	},
	"linux": {
		"messaging": {"whatsapp-desktop"},
		"notepad":   {"gedit"},
		"browser":   {"xdg-open", "https://www.google.com"},
	},
}

// openCommand returns the argv that opens app (or url) on goos.
func openCommand(goos, app, url string) ([]string, error) {
	if url != "" {
		switch goos {
		case "windows":
			return []string{"cmd", "/c", "start", url}, nil
		case "darwin":
			return []string{"open", url}, nil
		default:
			return []string{"xdg-open", url}, nil
		}
	}
	if app == "" {
		return nil, errors.New("config requires app or url")
	}
	if argv, ok := appCommands[goos][app]; ok {
		return argv, nil
	}
	if goos == "darwin" {
		return []string{"open", "-a", app}, nil
	}
	return []string{app}, nil
}

func openApp(_ *Request, s Settings) (any, error) {
	argv, err := openCommand(runtime.GOOS, s.App, s.URL)
	if err != nil {
		return nil, err
	}
	// Detached: the app outlives the plugin process.
	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return nil, err
	}
	return map[string]string{"opened": argv[len(argv)-1]}, nil
}

// screenshotCommand returns the argv that writes a screenshot to path.
func screenshotCommand(goos, path string) []string {
	switch goos {
	case "windows":
		script := fmt.Sprintf(`Add-Type -AssemblyName System.Windows.Forms,System.Drawing;`+
			`$b=[System.Windows.Forms.Screen]::PrimaryScreen.Bounds;`+
			`$i=New-Object System.Drawing.Bitmap $b.Width,$b.Height;`+
			`[System.Drawing.Graphics]::FromImage($i).CopyFromScreen($b.Location,[System.Drawing.Point]::Empty,$b.Size);`+
			`$i.Save('%s')`, path)
		return []string{"powershell", "-Command", script}
	case "darwin":
		return []string{"screencapture", "-x", path}
	default:
		return []string{"import", "-window", "root", path}
	}
}

func screenshot(_ *Request, s Settings) (any, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "mudra_screenshot_"+time.Now().Format("20060102_150405")+".png")

	argv := screenshotCommand(runtime.GOOS, path)
	if out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, out)
	}
	return map[string]string{"path": path}, nil
}

// moodLine formats one mood log record.
func moodLine(at time.Time, label string, confidence float64) string {
	return fmt.Sprintf("%s,%s,%.2f\n", at.Format(time.RFC3339), label, confidence)
}

func logMood(req *Request, s Settings) (any, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, "mood_log.txt")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteString(moodLine(time.Now(), req.Label, req.Confidence)); err != nil {
		return nil, err
	}
	return map[string]string{"path": path}, nil
}

// mediaKeys maps media commands to macOS key codes.
var mediaKeys = map[string]int{
	"play-pause": 100,
	"next":       101,
	"prev":       98,
}

// mediaCommand returns the argv that sends command to the active player.
func mediaCommand(goos, command string) ([]string, error) {
	code, ok := mediaKeys[command]
	if !ok {
		return nil, fmt.Errorf("unknown media command %q", command)
	}
	switch goos {
	case "darwin":
		return []string{"osascript", "-e",
			fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)}, nil
	case "linux":
		verb := map[string]string{"play-pause": "play-pause", "next": "next", "prev": "previous"}[command]
		return []string{"playerctl", verb}, nil
	case "windows":
		vk := map[string]int{"play-pause": 0xB3, "next": 0xB0, "prev": 0xB1}[command]
		script := fmt.Sprintf(`(New-Object -ComObject WScript.Shell).SendKeys([char]%d)`, vk)
		return []string{"powershell", "-Command", script}, nil
	}
	return nil, fmt.Errorf("media keys unsupported on %s", goos)
}

func media(_ *Request, s Settings) (any, error) {
	command := s.Command
	if command == "" {
		command = "play-pause"
	}
	argv, err := mediaCommand(runtime.GOOS, command)
	if err != nil {
		return nil, err
	}
	if out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, out)
	}
	return map[string]string{"command": command}, nil
}

// notifyCommand returns the argv that shows a desktop notification.
func notifyCommand(goos, title, message string) []string {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", fmt.Sprintf("display notification %q with title %q", message, title)}
	case "windows":
		script := fmt.Sprintf(`[System.Reflection.Assembly]::LoadWithPartialName('System.Windows.Forms');`+
			`[System.Windows.Forms.MessageBox]::Show('%s','%s')`, message, title)
		return []string{"powershell", "-Command", script}
	default:
		return []string{"notify-send", title, message}
	}
}

func notify(req *Request, s Settings) (any, error) {
	title := s.Title
	if title == "" {
		title = "Mudra"
	}
	message := s.Message
	if message == "" {
		message = fmt.Sprintf("%s detected (%.0f%%)", req.Label, req.Confidence*100)
	}

	argv := notifyCommand(runtime.GOOS, title, message)
	if out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, out)
	}
	return nil, nil
}
