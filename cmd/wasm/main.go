//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/kittclouds/plotweave/internal/store"
	"github.com/kittclouds/plotweave/pkg/arc"
	"github.com/kittclouds/plotweave/pkg/direction"
	"github.com/kittclouds/plotweave/pkg/director"
	"github.com/kittclouds/plotweave/pkg/generate"
	"github.com/kittclouds/plotweave/pkg/profile"
	"github.com/kittclouds/plotweave/pkg/response"
)

// Version info
const Version = "0.3.0" // Arc machine + dual-source profiles

// Global state
var cacheStore *store.CacheStore
var syncStore store.SyncStore
var machine *arc.Machine
var genSvc *generate.Service
var extractor *direction.Extractor
var matcher *direction.Matcher
var profiles *profile.Coordinator
var directorSvc *director.Service

func main() {
	fmt.Println("[PlotWeave] WASM Ready v" + Version)

	js.Global().Set("PlotWeave", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		// Lifecycle
		"plotInit":       js.FuncOf(jsPlotInit),
		"generateConfig": js.FuncOf(jsGenerateConfig),
		// Arc machine
		"arcStart":       js.FuncOf(jsArcStart),
		"arcAdvance":     js.FuncOf(jsArcAdvance),
		"arcChoose":      js.FuncOf(jsArcChoose),
		"arcReset":       js.FuncOf(jsArcReset),
		"arcStatus":      js.FuncOf(jsArcStatus),
		"arcSuggestions": js.FuncOf(jsArcSuggestions),
		// Plot development
		"plotDevelop":  js.FuncOf(jsPlotDevelop),
		"plotInjected": js.FuncOf(jsPlotInjected),
		// Profiles
		"profileRestore": js.FuncOf(jsProfileRestore),
		"profileList":    js.FuncOf(jsProfileList),
		"profileDelete":  js.FuncOf(jsProfileDelete),
		"statusLabel":    js.FuncOf(jsStatusLabel),
	}))

	select {}
}

// getVersion returns the module version
func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// jsSyncStore adapts the host's authoritative storage callbacks. The
// host passes synchronous put/get functions; get returns null when the
// conversation has no record, put returns an error message string on
// failure.
type jsSyncStore struct {
	put js.Value
	get js.Value
}

func (s *jsSyncStore) Put(_ context.Context, conversationID string, data []byte) error {
	res := s.put.Invoke(conversationID, string(data))
	if res.Type() == js.TypeString && res.String() != "" {
		return fmt.Errorf("sync: %s", res.String())
	}
	return nil
}

func (s *jsSyncStore) Get(_ context.Context, conversationID string) ([]byte, error) {
	res := s.get.Invoke(conversationID)
	if res.IsNull() || res.IsUndefined() {
		return nil, store.ErrAbsent
	}
	return []byte(res.String()), nil
}

// jsPlotInit wires the whole pipeline.
// Args: [configJSON string, syncPut func, syncGet func]
// The sync callbacks are optional; without them profiles live only in
// the local cache.
func jsPlotInit(this js.Value, args []js.Value) interface{} {
	var cfg generate.Config
	if len(args) > 0 && args[0].String() != "" && args[0].String() != "null" {
		if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
			return errorResult("plotInit: invalid config: " + err.Error())
		}
	}

	var err error
	cacheStore, err = store.NewCacheStore()
	if err != nil {
		return errorResult("plotInit: cache store: " + err.Error())
	}

	if len(args) > 2 && args[1].Type() == js.TypeFunction && args[2].Type() == js.TypeFunction {
		syncStore = &jsSyncStore{put: args[1], get: args[2]}
	} else {
		syncStore = store.NewMemorySyncStore()
		fmt.Println("[PlotWeave] no sync callbacks provided, using in-memory sync store")
	}

	machine = arc.NewMachine(arc.DefaultCatalog())
	genSvc = generate.NewService(cfg)
	extractor = direction.NewExtractor()

	matcher, err = direction.NewMatcher()
	if err != nil {
		fmt.Println("[PlotWeave] cue matcher unavailable:", err.Error())
		matcher = nil
	}

	profiles = profile.NewCoordinator(syncStore, cacheStore, profile.Config{})
	directorSvc = director.NewService(machine, profiles, genSvc, extractor, matcher)

	fmt.Println("[PlotWeave] ✅ Initialized")
	return successResult("initialized")
}

// jsGenerateConfig updates the generation provider settings.
// Args: [configJSON string]
func jsGenerateConfig(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("generateConfig requires 1 arg: configJSON")
	}
	if genSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	var cfg generate.Config
	if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
		return errorResult("invalid config json: " + err.Error())
	}

	genSvc.UpdateConfig(cfg)
	return successResult("config updated")
}

func profileKey(args []js.Value) profile.Key {
	return profile.Key{
		ParticipantID:  args[0].String(),
		ConversationID: args[1].String(),
	}
}

// jsArcStart activates an arc template.
// Args: [participantId, conversationId, templateId, subjectRef]
func jsArcStart(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("arcStart requires 4 args: participantId, conversationId, templateId, subjectRef")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	snap, err := directorSvc.StartArc(context.Background(), profileKey(args), args[2].String(), args[3].String())
	if err != nil {
		return errorResult(err.Error())
	}

	bytes, _ := json.Marshal(snap)
	return string(bytes)
}

// jsArcAdvance moves the active arc to its next phase.
// Args: [participantId, conversationId]
func jsArcAdvance(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("arcAdvance requires 2 args: participantId, conversationId")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	res, err := directorSvc.AdvancePhase(context.Background(), profileKey(args))
	if err != nil {
		return errorResult(err.Error())
	}

	bytes, _ := json.Marshal(map[string]interface{}{
		"completed": res.Completed,
		"snapshot":  res.Snapshot,
	})
	return string(bytes)
}

// jsArcChoose records a narrative choice.
// Args: [participantId, conversationId, kind, value]
func jsArcChoose(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("arcChoose requires 4 args: participantId, conversationId, kind, value")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	if err := directorSvc.MakeChoice(context.Background(), profileKey(args), args[2].String(), args[3].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("choice recorded")
}

// jsArcReset clears all arc state for the conversation.
// Args: [participantId, conversationId]
func jsArcReset(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("arcReset requires 2 args: participantId, conversationId")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	if err := directorSvc.ResetArc(context.Background(), profileKey(args)); err != nil {
		return errorResult(err.Error())
	}
	return successResult("arc reset")
}

// jsArcStatus returns the current arc snapshot, or null when idle.
func jsArcStatus(this js.Value, args []js.Value) interface{} {
	if machine == nil {
		return errorResult("not initialized - call plotInit first")
	}

	snap := machine.Status()
	if snap == nil {
		return "null"
	}
	bytes, _ := json.Marshal(snap)
	return string(bytes)
}

// jsArcSuggestions returns up to three plot directions.
// Args: [subjectRef string, recentJSON string (optional)]
func jsArcSuggestions(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("arcSuggestions requires 1+ args: subjectRef, [recentJSON]")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	var recent []string
	if len(args) > 1 && args[1].String() != "" && args[1].String() != "null" {
		if err := json.Unmarshal([]byte(args[1].String()), &recent); err != nil {
			return errorResult("invalid recent json: " + err.Error())
		}
	}

	suggestions := directorSvc.Suggestions(args[0].String(), recent)
	bytes, _ := json.Marshal(response.FromSuggestions(suggestions))
	return string(bytes)
}

// makePromise creates a JS Promise and returns it along with resolve/reject functions.
func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}

// jsPlotDevelop generates and persists the next plot development.
// Args: [participantId, conversationId, requestJSON]
// requestJSON: {participantName, suggestion?, recentWindow?, chatLength?, lastMessageTime?}
// Returns: Promise<JSON>
func jsPlotDevelop(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("plotDevelop requires 3 args: participantId, conversationId, requestJSON")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	k := profileKey(args)

	var input struct {
		ParticipantName string         `json:"participantName"`
		Suggestion      arc.Suggestion `json:"suggestion"`
		RecentWindow    []string       `json:"recentWindow"`
		ChatLength      int            `json:"chatLength"`
		LastMessageTime int64          `json:"lastMessageTime"`
	}
	if err := json.Unmarshal([]byte(args[2].String()), &input); err != nil {
		return errorResult("invalid request json: " + err.Error())
	}

	promise, resolve, reject := makePromise()

	go func() {
		res, err := directorSvc.DevelopPlot(context.Background(), k, director.DevelopRequest{
			ParticipantName: input.ParticipantName,
			Suggestion:      input.Suggestion,
			RecentWindow:    input.RecentWindow,
			ChatLength:      input.ChatLength,
			LastMessageTime: input.LastMessageTime,
		})
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(fmt.Sprintf("plotDevelop: %v", err)))
			return
		}

		jsonBytes, _ := json.Marshal(map[string]interface{}{
			"plotText":    res.Entry.Text,
			"entryId":     res.Entry.ID,
			"hints":       res.Hints,
			"cues":        res.Cues,
			"syncFailed":  res.Save.SyncFailed,
			"storageFull": res.Save.StorageFull,
			"evicted":     res.Save.Evicted,
		})
		resolve.Invoke(string(jsonBytes))
	}()

	return promise
}

// jsPlotInjected marks the current plot as inserted into the chat.
// Args: [participantId, conversationId]
func jsPlotInjected(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("plotInjected requires 2 args: participantId, conversationId")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	if err := directorSvc.MarkInjected(context.Background(), profileKey(args)); err != nil {
		return errorResult(err.Error())
	}
	return successResult("marked injected")
}

// jsProfileRestore loads the stored profile for a conversation.
// Restoration is read-only; nothing is written back.
// Args: [participantId, conversationId]
// Returns: slim profile JSON or null
func jsProfileRestore(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("profileRestore requires 2 args: participantId, conversationId")
	}
	if directorSvc == nil {
		return errorResult("not initialized - call plotInit first")
	}

	view, source, err := directorSvc.Restore(context.Background(), profileKey(args))
	if err != nil {
		if err == profile.ErrNotFound {
			return "null"
		}
		return errorResult(err.Error())
	}

	bytes, err := response.MarshalProfile(view, source, director.StatusLabel(view.Status))
	if err != nil {
		return errorResult(err.Error())
	}
	return string(bytes)
}

// jsProfileList returns the conversation index, most recent first.
func jsProfileList(this js.Value, args []js.Value) interface{} {
	if profiles == nil {
		return errorResult("not initialized - call plotInit first")
	}

	entries, err := profiles.List()
	if err != nil {
		return errorResult("list failed: " + err.Error())
	}

	bytes, err := response.MarshalIndex(entries)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(bytes)
}

// jsProfileDelete removes the local copy of a profile.
// Args: [participantId, conversationId]
func jsProfileDelete(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("profileDelete requires 2 args: participantId, conversationId")
	}
	if profiles == nil {
		return errorResult("not initialized - call plotInit first")
	}

	if err := profiles.Delete(profileKey(args)); err != nil {
		return errorResult("delete failed: " + err.Error())
	}
	return successResult("deleted")
}

// jsStatusLabel maps a stored status to its display label.
// Args: [status string]
func jsStatusLabel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("statusLabel requires 1 arg: status")
	}
	return director.StatusLabel(args[0].String())
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
