// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package studio runs one hotspot editing session per websocket connection.
//
// The browser only renders the panorama and the overlay. It reports viewer events
// and UI commands; the session feeds them to the viewport, the overlay, the placement
// machine and the editor, and answers with renderer commands and view updates.
//
// Message flow:
//
//	browser ──viewer.*──▶ Viewport ──camera──▶ Overlay ──overlay.update──▶ browser
//	browser ──ui.*──────▶ Placement ──record──▶ Editor ──session.hotspots─▶ browser
//	ui.save ──▶ Editor.Save (background) ──▶ scene_updated to other sessions
//
// Every failure is reported to the browser as a toast; nothing is retried.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vtour/internal/backend"
	"github.com/tomtom215/vtour/internal/editor"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/overlay"
	"github.com/tomtom215/vtour/internal/placement"
	"github.com/tomtom215/vtour/internal/sphere"
	"github.com/tomtom215/vtour/internal/validation"
	"github.com/tomtom215/vtour/internal/viewport"
	"github.com/tomtom215/vtour/internal/websocket"
)

// ErrClosed is returned by Open after the session has been closed.
var ErrClosed = errors.New("studio session closed")

// Backend is the tour backend a session reads scenes from and saves hotspots to.
type Backend interface {
	editor.Backend
	GetScene(ctx context.Context, id int64) (*models.Scene, error)
}

// Notifier is told about every save that reached the backend.
type Notifier interface {
	SceneSaved(sceneID int64)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(sceneID int64)

// SceneSaved implements Notifier.
func (f NotifierFunc) SceneSaved(sceneID int64) { f(sceneID) }

// Options configures a Session.
type Options struct {
	Width       float64
	Height      float64
	HFOV        float64
	SaveTimeout time.Duration
	Notifier    Notifier
}

// Session is the server side of one studio connection. It implements
// websocket.Handler and is safe for concurrent use.
type Session struct {
	id      string
	kind    models.Kind
	backend Backend
	sender  viewport.Sender
	opts    Options

	ctx   context.Context
	saves sync.WaitGroup

	// mu serializes everything below along with the viewport callbacks, which run
	// synchronously inside Handle and Initialize.
	mu        sync.Mutex
	closed    bool
	sceneID   int64
	viewports *viewport.Adapter
	view      *viewport.Viewport
	overlay   *overlay.Sync
	machine   *placement.Machine
	editor    *editor.Session
	modalOpen bool
}

// NewSession creates a session for hotspots of kind that talks to the browser through
// sender. Values of ctx, such as the forwarded Authorization, apply to every backend
// call; its cancellation does not.
func NewSession(ctx context.Context, b Backend, sender viewport.Sender, kind models.Kind, opts Options) *Session {
	if opts.HFOV == 0 {
		opts.HFOV = viewport.DefaultHFOV
	}
	vpOpts := []viewport.Option{viewport.WithHFOV(opts.HFOV)}
	if opts.Width > 0 && opts.Height > 0 {
		vpOpts = append(vpOpts, viewport.WithSize(opts.Width, opts.Height))
	}

	s := &Session{
		id:      uuid.NewString(),
		kind:    kind,
		backend: b,
		sender:  sender,
		opts:    opts,
		ctx:     logging.ContextWithNewCorrelationID(context.WithoutCancel(ctx)),
		editor:  editor.NewSession(b, kind),
	}
	s.ctx = logging.ContextWithSessionID(s.ctx, s.id)
	s.viewports = viewport.NewAdapter(func(container string) viewport.Renderer {
		return viewport.NewRemoteRenderer(container, sender)
	}, vpOpts...)

	metrics.StudioSessionsActive.Inc()
	return s
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// Kind returns the hotspot kind this session edits.
func (s *Session) Kind() models.Kind { return s.kind }

// SceneID returns the scene being edited, or 0 before Open succeeds.
func (s *Session) SceneID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneID
}

func (s *Session) container() string {
	return "studio-" + string(s.kind)
}

// Open loads sceneID and shows it. Unsaved changes of a previously opened scene are
// discarded. Failures are also reported to the browser as a toast.
func (s *Session) Open(ctx context.Context, sceneID int64) error {
	ctx = s.logContext(ctx)

	scene, err := s.backend.GetScene(ctx, sceneID)
	if err != nil {
		s.toastErr(ctx, err, "Failed to load scene")
		return fmt.Errorf("load scene %d: %w", sceneID, err)
	}
	if err := s.editor.Load(ctx, sceneID); err != nil {
		s.toastErr(ctx, err, "Failed to load hotspots")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.sceneID = sceneID
	if s.machine != nil {
		s.machine.SetSceneID(sceneID)
	}

	spec := viewport.InitSpec{
		ImageURL: ImageURL(scene.Image),
		Yaw:      scene.DefaultYaw,
		Pitch:    scene.DefaultPitch,
	}
	// Handlers go on before the mount so a synchronous mount failure still toasts.
	v := s.viewports.Viewport(s.container())
	if v != s.view {
		s.wireLocked(v)
	}
	if err := v.Initialize(spec); err != nil {
		s.toastLocked(ToastError, "Panorama is already loading")
		return fmt.Errorf("initialize viewport: %w", err)
	}

	if err := s.overlay.SetHotspots(s.editor.List()); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Overlay reconcile before load")
	}
	s.sendHotspotsLocked()

	logging.Ctx(ctx).Info().
		Int64("scene_id", sceneID).
		Str("kind", string(s.kind)).
		Int("hotspots", len(s.editor.List())).
		Msg("Studio session opened scene")
	return nil
}

// wireLocked attaches the overlay and the placement machine to a new viewport.
func (s *Session) wireLocked(v *viewport.Viewport) {
	s.view = v

	s.overlay = overlay.New(v, overlay.SinkFunc(func(markers []overlay.Marker) {
		s.emit(MsgOverlayUpdate, OverlayUpdate{Markers: markers})
	}), s.markerClickedLocked)

	s.machine = placement.New(s.kind, s.editor,
		placement.WithViewer(v),
		placement.WithOverlay(s.overlay),
		placement.WithSceneID(s.sceneID),
	)
	s.machine.OnChange(s.placementChangedLocked)

	v.OnLoad(func() {
		if err := s.overlay.Resync(); err != nil {
			logging.Ctx(s.ctx).Warn().Err(err).Msg("Failed to add hotspot markers after load")
		}
	})
	v.OnError(func(err error) {
		s.toastLocked(ToastError, "Panorama failed to load: "+err.Error())
	})
	v.OnCameraChange(s.overlay.HandleCameraChange)
}

// HandleMessage implements websocket.Handler.
func (s *Session) HandleMessage(ctx context.Context, msg websocket.Inbound) {
	ctx = s.logContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var err error
	switch {
	case viewport.IsViewerEvent(msg.Type):
		err = s.handleViewerLocked(msg)
	case msg.Type == CmdSave:
		s.startSaveLocked()
	case msg.Type == CmdReload:
		err = s.reloadLocked(ctx)
	case msg.Type == CmdRetry:
		err = s.retryLocked()
	default:
		err = s.handleCommandLocked(msg)
	}

	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("type", msg.Type).Msg("Studio command rejected")
		s.toastLocked(ToastError, userMessage(err))
	}
}

func (s *Session) handleViewerLocked(msg websocket.Inbound) error {
	if s.view == nil {
		return nil
	}
	ev, err := viewport.DecodeEvent(msg.Type, msg.Data)
	if err != nil {
		return err
	}

	if ev.Kind == viewport.EventClick && s.machine.State() == placement.StateClickArmed {
		if ev.Pointer.OnMarker || ev.Pointer.OnControl {
			return nil
		}
		return s.machine.Click(ev.Pointer)
	}

	s.view.Handle(ev)
	if ev.Kind == viewport.EventResize {
		s.overlay.Recompute()
	}
	return nil
}

func (s *Session) handleCommandLocked(msg websocket.Inbound) error {
	if s.machine == nil {
		return editor.ErrNoScene
	}

	switch msg.Type {
	case CmdArmClick:
		return s.machine.ArmClick()

	case CmdArmDrag:
		var args dragArgs
		if err := decodeArgs(msg.Type, msg.Data, &args); err != nil {
			return err
		}
		var start *sphere.Point
		if args.XPercent != nil && args.YPercent != nil {
			start = &sphere.Point{X: *args.XPercent, Y: *args.YPercent}
		}
		return s.machine.ArmDrag(start)

	case CmdDragMove:
		var args dragArgs
		if err := decodeArgs(msg.Type, msg.Data, &args); err != nil {
			return err
		}
		if args.XPercent == nil || args.YPercent == nil {
			return fmt.Errorf("%s: x_percent and y_percent are required", msg.Type)
		}
		return s.machine.DragMove(*args.XPercent, *args.YPercent)

	case CmdConfirmDrag:
		return s.machine.ConfirmDrag()

	case CmdCancel, CmdModalCancel:
		s.machine.Cancel()
		return nil

	case CmdModalSave:
		var fields modalFields
		if err := decodeArgs(msg.Type, msg.Data, &fields); err != nil {
			return err
		}
		return s.modalSaveLocked(fields)

	case CmdModalDelete:
		if err := s.machine.Delete(); err != nil {
			return err
		}
		s.refreshLocked()
		return nil

	case CmdDelete:
		var args refArgs
		if err := decodeArgs(msg.Type, msg.Data, &args); err != nil {
			return err
		}
		if err := s.editor.RecordDelete(args.Ref); err != nil {
			return err
		}
		s.refreshLocked()
		return nil

	case CmdEdit:
		var args refArgs
		if err := decodeArgs(msg.Type, msg.Data, &args); err != nil {
			return err
		}
		h, ok := s.editor.Find(args.Ref)
		if !ok {
			return fmt.Errorf("%w: %s", editor.ErrUnknownHotspot, args.Ref)
		}
		return s.machine.Edit(h)

	case CmdMarkerClick:
		var args markerArgs
		if err := decodeArgs(msg.Type, msg.Data, &args); err != nil {
			return err
		}
		return s.overlay.Click(args.ID)

	default:
		return fmt.Errorf("unknown studio command %q", msg.Type)
	}
}

// modalSaveLocked validates the modal fields against the draft and records them.
func (s *Session) modalSaveLocked(fields modalFields) error {
	draft, ok := s.machine.Draft()
	if !ok {
		return fmt.Errorf("%w: no hotspot is being edited", placement.ErrInvalidTransition)
	}

	h := fields.hotspot()
	for i := range h.Sentences {
		if h.Sentences[i].ID == "" {
			h.Sentences[i].ID = uuid.NewString()
		}
		if h.Sentences[i].VoiceSource == "" {
			h.Sentences[i].VoiceSource = models.VoiceBrowser
		}
	}

	candidate := h.Clone()
	candidate.Kind, candidate.Pitch, candidate.Yaw = draft.Kind, draft.Pitch, draft.Yaw
	if verr := validation.ValidateStruct(candidate.Payload()); verr != nil {
		return verr
	}

	if err := s.machine.Save(h); err != nil {
		return err
	}
	s.refreshLocked()
	return nil
}

func (s *Session) markerClickedLocked(h models.Hotspot) {
	if err := s.machine.Edit(h); err != nil {
		s.toastLocked(ToastError, userMessage(err))
	}
}

func (s *Session) placementChangedLocked(snap placement.Snapshot) {
	s.emit(MsgPlacementState, PlacementState{
		State:     snap.State,
		Kind:      snap.Kind,
		Marker:    snap.Marker,
		Candidate: snap.Candidate,
	})

	switch {
	case snap.State == placement.StateEditing && snap.Draft != nil:
		s.modalOpen = true
		s.emit(MsgModalOpen, ModalOpen{Draft: *snap.Draft, IsNew: snap.Draft.Ref.IsDraft()})
	case s.modalOpen:
		s.modalOpen = false
		s.emit(MsgModalClose, nil)
	}
}

// refreshLocked pushes the editor list to the overlay and the browser.
func (s *Session) refreshLocked() {
	if s.overlay != nil {
		if err := s.overlay.SetHotspots(s.editor.List()); err != nil {
			logging.Ctx(s.ctx).Warn().Err(err).Msg("Failed to reconcile hotspot markers")
		}
	}
	s.sendHotspotsLocked()
}

func (s *Session) sendHotspotsLocked() {
	s.emit(MsgSessionHotspots, SessionHotspots{
		SceneID: s.sceneID,
		Kind:    s.kind,
		Items:   s.editor.Hotspots(),
		Dirty:   s.editor.Dirty(),
	})
}

func (s *Session) retryLocked() error {
	if s.view == nil {
		return editor.ErrNoScene
	}
	return s.view.Retry()
}

// reloadLocked discards unsaved changes and reloads the scene's hotspots, typically
// after another session saved the same scene.
func (s *Session) reloadLocked(ctx context.Context) error {
	if s.sceneID == 0 {
		return editor.ErrNoScene
	}
	if s.machine != nil {
		s.machine.Cancel()
	}
	if err := s.editor.Load(ctx, s.sceneID); err != nil {
		return err
	}
	s.refreshLocked()
	return nil
}

// startSaveLocked runs the batched save in the background so viewer events keep
// flowing while requests are in flight.
func (s *Session) startSaveLocked() {
	if s.sceneID == 0 {
		s.toastLocked(ToastError, userMessage(editor.ErrNoScene))
		return
	}
	if s.editor.Saving() {
		s.toastLocked(ToastError, userMessage(editor.ErrSaveInProgress))
		return
	}
	if !s.editor.Dirty() {
		s.toastLocked(ToastInfo, "No changes to save")
		return
	}

	sceneID := s.sceneID
	s.emit(MsgSessionSaving, SessionSaving{Saving: true})
	s.saves.Add(1)
	go s.save(sceneID)
}

// save runs on the session context, which is never cancelled, so closing the
// socket does not abort requests already sent.
func (s *Session) save(sceneID int64) {
	defer s.saves.Done()

	ctx := s.ctx
	if s.opts.SaveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SaveTimeout)
		defer cancel()
	}

	res, err := s.editor.Save(ctx)
	persisted := err == nil || errors.Is(err, editor.ErrReloadFailed)

	s.mu.Lock()
	if !s.closed {
		switch {
		case err == nil:
			s.toastLocked(ToastSuccess, fmt.Sprintf("Saved %d change(s)", res.Deleted+res.Created+res.Updated))
		case persisted:
			s.toastLocked(ToastError, "Changes saved, but the hotspot list could not be reloaded")
		default:
			s.toastLocked(ToastError, backend.UserMessage(err, "Failed to save hotspots"))
		}
		s.refreshLocked()
		s.emit(MsgSessionSaving, SessionSaving{Saving: false})
	}
	s.mu.Unlock()

	if persisted && s.opts.Notifier != nil {
		s.opts.Notifier.SceneSaved(sceneID)
	}
}

// Close implements websocket.Handler. A save already in flight keeps running until
// the backend answers or SaveTimeout expires; Close waits for it.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.saves.Wait()

	if err := s.viewports.Close(); err != nil && !errors.Is(err, websocket.ErrClientClosed) {
		logging.Ctx(s.ctx).Debug().Err(err).Msg("Viewport teardown failed")
	}
	metrics.StudioSessionsActive.Dec()
	logging.Ctx(s.ctx).Info().Int64("scene_id", s.SceneID()).Msg("Studio session closed")
}

func (s *Session) logContext(ctx context.Context) context.Context {
	if logging.SessionIDFromContext(ctx) == "" {
		ctx = logging.ContextWithSessionID(ctx, s.id)
	}
	return ctx
}

func (s *Session) toastErr(ctx context.Context, err error, fallback string) {
	logging.Ctx(ctx).Warn().Err(err).Msg(fallback)
	s.emit(MsgToast, Toast{Level: ToastError, Message: backend.UserMessage(err, fallback)})
}

func (s *Session) toastLocked(level ToastLevel, message string) {
	s.emit(MsgToast, Toast{Level: level, Message: message})
}

// emit sends a message to the browser. A closed connection is not an error here;
// the session is closed right after.
func (s *Session) emit(msgType string, data any) {
	if err := s.sender.Send(msgType, data); err != nil && !errors.Is(err, websocket.ErrClientClosed) {
		metrics.WSErrors.WithLabelValues("send").Inc()
		logging.Ctx(s.ctx).Warn().Err(err).Str("type", msgType).Msg("Failed to send studio message")
	}
}

// userMessage turns a local failure into toast text.
func userMessage(err error) string {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, placement.ErrInvalidCoordinates):
		return "That position is outside the panorama. Pick another spot."
	case errors.Is(err, placement.ErrInvalidTransition):
		return "Finish or cancel the current hotspot first."
	case errors.Is(err, placement.ErrKindMismatch), errors.Is(err, editor.ErrWrongKind):
		return "This hotspot belongs to another editor."
	case errors.Is(err, editor.ErrSaveInProgress):
		return "A save is already in progress."
	case errors.Is(err, editor.ErrNoScene):
		return "No scene is loaded."
	case errors.Is(err, editor.ErrUnknownHotspot):
		return "That hotspot no longer exists."
	case errors.Is(err, viewport.ErrNothingToRetry):
		return "The panorama is not in an error state."
	case errors.Is(err, overlay.ErrNotVisible):
		return "That hotspot is not visible."
	default:
		return backend.UserMessage(err, "Something went wrong")
	}
}

// ImageURL maps a scene image reference to the path the browser loads it from.
// Absolute URLs and rooted paths are used as they are; bare storage paths go through
// the private image proxy.
func ImageURL(image string) string {
	switch {
	case image == "":
		return ""
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"), strings.HasPrefix(image, "/"):
		return image
	default:
		return backend.APIPrefix + "/storage/" + strings.TrimPrefix(image, "storage/")
	}
}
