// Package tray provides a system tray menu for Mudra.
package tray

import (
	"context"
	"sync"
	"time"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onReset     func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	lastAction  string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a Tray showing the given enabled state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback for the enable/disable item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback for the reset blink counter item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback for the open dashboard item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is clicked or Stop is
// called, and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Stop quits the tray from any goroutine.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture, expression and blink control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle detection")
	systray.AddSeparator()
	t.menuLastAction = systray.AddMenuItem(lastTitle(t.lastAction), "Last dispatched event")
	t.menuLastAction.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset Blink Counter", "Clear the blink burst in progress")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.call(func() func() { return t.onReset })
			case <-menuDashboard.ClickedCh:
				t.call(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock: the callback may call back into the tray.
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetLastAction updates the last action display in the menu.
func (t *Tray) SetLastAction(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if label == t.lastAction {
		return
	}
	t.lastAction = label
	if t.menuLastAction != nil {
		t.menuLastAction.SetTitle(lastTitle(label))
	}
}

// LastAction returns the label shown in the menu.
func (t *Tray) LastAction() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastAction
}

// Follow polls label every interval and shows it as the last action until
// ctx is cancelled.
func (t *Tray) Follow(ctx context.Context, interval time.Duration, label func() string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.SetLastAction(label())
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
