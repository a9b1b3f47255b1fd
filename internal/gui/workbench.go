package gui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/makistry/meshview/internal/api"
	"github.com/makistry/meshview/internal/assistant"
	"github.com/makistry/meshview/internal/workspace"
	"github.com/makistry/meshview/pkg/viewer"
	"go.uber.org/zap"
)

// Workbench is the design window: prompt, pipeline actions, viewport and
// assistant chat.
type Workbench struct {
	window    fyne.Window
	workspace *workspace.Workspace
	assistant *assistant.Client
	viewport  *Viewport
	logger    *zap.Logger
	ctx       context.Context

	prompt      *widget.Entry
	brainstorm  *widget.Label
	stageLabel  *widget.Label
	actions     map[workspace.Stage]*widget.Button
	brainstormB *widget.Button

	chatLog     *widget.Label
	chatEntry   *widget.Entry
	keyEntry    *widget.Entry
	history     []assistant.Message
	busy        bool
	suggestions *widget.Label
}

// NewWorkbench builds the window content
func NewWorkbench(ctx context.Context, window fyne.Window, ws *workspace.Workspace, ac *assistant.Client, viewport *Viewport, logger *zap.Logger) *Workbench {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Workbench{
		window:    window,
		workspace: ws,
		assistant: ac,
		viewport:  viewport,
		logger:    logger.With(zap.String("component", "workbench")),
		ctx:       ctx,
		actions:   make(map[workspace.Stage]*widget.Button),
	}
	window.SetContent(b.build())
	b.updateActions()
	return b
}

func (b *Workbench) build() fyne.CanvasObject {
	b.prompt = widget.NewMultiLineEntry()
	b.prompt.SetPlaceHolder("Describe the product you want to design")
	b.prompt.SetMinRowsVisible(3)

	b.brainstorm = widget.NewLabel("No project yet")
	b.brainstorm.Wrapping = fyne.TextWrapWord
	b.stageLabel = widget.NewLabel("")

	b.brainstormB = widget.NewButton("Brainstorm", func() {
		prompt := strings.TrimSpace(b.prompt.Text)
		b.run("Brainstorm", func(ctx context.Context) error {
			resp, err := b.workspace.Brainstorm(ctx, prompt)
			if err == nil {
				fyne.Do(func() { b.brainstorm.SetText(FormatBrainstorm(&resp.Brainstorm)) })
			}
			return err
		})
	})

	// Each action unlocks at the stage it requires
	b.actions[workspace.StageBrainstormed] = widget.NewButton("Generate Design", func() {
		b.run("Generate design", func(ctx context.Context) error {
			_, err := b.workspace.GenerateDesign(ctx)
			return err
		})
	})
	b.actions[workspace.StageDesigned] = widget.NewButton("Prepare Simulation", func() {
		b.run("Prepare simulation", func(ctx context.Context) error {
			_, err := b.workspace.PrepareSimulation(ctx)
			return err
		})
	})
	b.actions[workspace.StagePrepared] = widget.NewButton("Generate Mesh", func() {
		b.run("Generate mesh", func(ctx context.Context) error {
			_, err := b.workspace.GenerateMesh(ctx)
			return err
		})
	})
	b.actions[workspace.StageMeshed] = widget.NewButton("Run Simulation", func() {
		b.run("Run simulation", func(ctx context.Context) error {
			_, err := b.workspace.RunSimulation(ctx)
			return err
		})
	})

	left := container.NewVBox(
		widget.NewLabelWithStyle("Prompt", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		b.prompt,
		b.brainstormB,
		widget.NewSeparator(),
		b.actions[workspace.StageBrainstormed],
		b.actions[workspace.StageDesigned],
		b.actions[workspace.StagePrepared],
		b.actions[workspace.StageMeshed],
		b.stageLabel,
		widget.NewSeparator(),
		b.brainstorm,
	)

	split := container.NewVSplit(b.viewport, b.buildAssistant())
	split.Offset = 0.7
	content := container.NewHSplit(container.NewVScroll(left), split)
	content.Offset = 0.25
	return content
}

func (b *Workbench) buildAssistant() fyne.CanvasObject {
	b.chatLog = widget.NewLabel("")
	b.chatLog.Wrapping = fyne.TextWrapWord
	b.suggestions = widget.NewLabel("")
	b.suggestions.Wrapping = fyne.TextWrapWord

	b.chatEntry = widget.NewEntry()
	b.chatEntry.SetPlaceHolder("Ask the CadQuery assistant")
	b.chatEntry.OnSubmitted = func(string) { b.sendChat() }

	b.keyEntry = widget.NewPasswordEntry()
	b.keyEntry.SetPlaceHolder("API key")
	saveKey := widget.NewButton("Save key", func() {
		if err := b.assistant.Credentials().Set(b.ctx, b.keyEntry.Text); err != nil {
			dialog.ShowError(err, b.window)
			return
		}
		b.keyEntry.SetText("")
	})

	send := widget.NewButton("Send", b.sendChat)
	suggest := widget.NewButton("Suggest improvements", b.requestSuggestions)

	controls := container.NewBorder(nil, nil, nil, container.NewHBox(send, suggest), b.chatEntry)
	settings := container.NewBorder(nil, nil, nil, saveKey, b.keyEntry)
	return container.NewBorder(settings, controls, nil, nil,
		container.NewVScroll(container.NewVBox(b.chatLog, b.suggestions)))
}

// run executes a pipeline action in the background, refreshing the buttons
// and the viewport layers when it finishes
func (b *Workbench) run(name string, action func(ctx context.Context) error) {
	if b.busy {
		return
	}
	b.busy = true
	b.updateActions()

	go func() {
		err := action(b.ctx)
		fyne.Do(func() {
			b.busy = false
			b.updateActions()
			if err != nil {
				b.logger.Warn("action failed", zap.String("action", name), zap.Error(err))
				if !errors.Is(err, workspace.ErrLocked) {
					dialog.ShowError(fmt.Errorf("%s failed: %w", name, err), b.window)
				}
				return
			}
			b.syncLayers()
		})
	}()
}

// updateActions enables exactly the actions whose prerequisite stage is met
func (b *Workbench) updateActions() {
	stage := b.workspace.Stage()
	b.stageLabel.SetText("Stage: " + stage.String())
	setEnabled(b.brainstormB, !b.busy)
	for required, btn := range b.actions {
		setEnabled(btn, !b.busy && stage >= required)
	}
}

func setEnabled(btn *widget.Button, enabled bool) {
	if enabled {
		btn.Enable()
	} else {
		btn.Disable()
	}
}

// syncLayers shows the workspace's current layers and removes stale ones
func (b *Workbench) syncLayers() {
	_ = SyncLayers(b.ctx, b.viewport.Session(), b.workspace.Layers())
}

// SyncLayers loads the given layers into the session and removes the roles
// that are no longer present. It returns the pending loads.
func SyncLayers(ctx context.Context, session *viewer.Session, layers []workspace.LayerDescriptor) []<-chan error {
	want := make(map[viewer.Role]string, len(layers))
	for _, l := range layers {
		want[l.Role] = l.URL
	}
	current := make(map[viewer.Role]string)
	for _, info := range session.Layers() {
		if _, ok := want[info.Role]; !ok {
			session.RemoveLayer(info.Role)
			continue
		}
		current[info.Role] = info.Source
	}

	var loads []<-chan error
	for _, l := range layers {
		if current[l.Role] == l.URL {
			continue
		}
		loads = append(loads, session.LoadLayer(ctx, l.URL, l.Format, l.Role))
	}
	return loads
}

func (b *Workbench) sendChat() {
	input := strings.TrimSpace(b.chatEntry.Text)
	if input == "" {
		return
	}
	b.chatEntry.SetText("")
	b.appendChat("You", input)
	history := append([]assistant.Message(nil), b.history...)

	go func() {
		reply, err := b.assistant.Chat(b.ctx, input, history)
		fyne.Do(func() {
			if err != nil {
				b.appendChat("Error", err.Error())
				return
			}
			b.history = append(b.history,
				assistant.Message{Role: assistant.RoleUser, Content: input},
				assistant.Message{Role: assistant.RoleAssistant, Content: reply})
			b.appendChat("Assistant", reply)
		})
	}()
}

func (b *Workbench) requestSuggestions() {
	state := b.workspace.State()
	design := state.Code
	designContext := ""
	if state.Brainstorm != nil {
		designContext = state.Brainstorm.DesignOneLiner
	}

	go func() {
		items, err := b.assistant.Suggestions(b.ctx, design, designContext)
		fyne.Do(func() {
			if err != nil {
				b.suggestions.SetText(err.Error())
				return
			}
			b.suggestions.SetText(FormatSuggestions(items))
		})
	}()
}

func (b *Workbench) appendChat(who, text string) {
	line := fmt.Sprintf("%s: %s", who, text)
	if b.chatLog.Text != "" {
		line = b.chatLog.Text + "\n\n" + line
	}
	b.chatLog.SetText(line)
}

// FormatBrainstorm renders a design concept as plain text
func FormatBrainstorm(bs *api.Brainstorm) string {
	if bs == nil {
		return "No project yet"
	}
	var sb strings.Builder
	sb.WriteString(bs.ProjectName)
	if bs.DesignOneLiner != "" {
		sb.WriteString("\n" + bs.DesignOneLiner)
	}
	writeList(&sb, "Key features", bs.KeyFeatures)
	writeList(&sb, "Functionalities", bs.KeyFunctionalities)
	writeList(&sb, "Components", bs.DesignComponents)
	writeMap(&sb, "Geometry", bs.OptimalGeometry)
	writeMap(&sb, "Material", bs.OptimalMaterial)
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n\n" + title + ":")
	for _, item := range items {
		sb.WriteString("\n  - " + item)
	}
}

func writeMap(sb *strings.Builder, title string, m map[string]any) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString("\n\n" + title + ":")
	for _, k := range keys {
		fmt.Fprintf(sb, "\n  %s: %v", k, m[k])
	}
}

// FormatSuggestions renders suggestions as a numbered list
func FormatSuggestions(items []string) string {
	if len(items) == 0 {
		return "No suggestions"
	}
	var sb strings.Builder
	sb.WriteString("Suggestions:\n")
	for i, s := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(s))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RunLoop ticks the scheduler at fps and pushes frames to the viewports
// until ctx is cancelled
func RunLoop(ctx context.Context, scheduler *viewer.Scheduler, fps int, viewports ...*Viewport) {
	if fps <= 0 {
		fps = viewer.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			scheduler.Tick(now.Sub(last))
			last = now
			for _, v := range viewports {
				v.Capture()
			}
			fyne.Do(func() {
				for _, v := range viewports {
					v.Refresh()
				}
			})
		}
	}
}
