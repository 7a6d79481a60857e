// Package prediction implements the client's prediction/reconciliation
// engine: it retains received snapshots and locally sent inputs keyed
// by tick, replays from the oldest retained snapshot up through the
// current tick to reconstruct the authoritative model, then continues
// the replay through a further-advanced predicted tick to produce the
// locally predicted world shown to the player.
//
// Grounded on original_source/client/src/server_interface/
// remote_server_interface/connected_state/after_snapshot_state.rs.
package prediction

import (
	"time"

	"github.com/duskrun-game/netcore/internal/clock"
	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/wire"
)

var logger = netlog.New("prediction")

// SendInputFunc stamps and transmits a locally produced input; the
// engine calls it once per local tick with the tick it assigned.
type SendInputFunc func(tick uint64, input model.CharacterInput)

// Engine holds all prediction state for one connected client.
type Engine struct {
	myPlayerID uint64
	clock      *clock.Clock
	sendInput  SendInputFunc

	snapshots          map[uint64]wire.Snapshot
	sentInputs         map[uint64]model.CharacterInput
	oldestSnapshotTick uint64
	predictedTick      uint64

	model          *model.Model
	predictedWorld *model.World
}

// New seeds the engine from the first snapshot received after
// connecting, and the function used to transmit future inputs.
func New(myPlayerID uint64, snapshot wire.Snapshot, recvTime time.Time, sendInput SendInputFunc) *Engine {
	return &Engine{
		myPlayerID:         myPlayerID,
		clock:              clock.NewFromSnapshot(snapshot.Tick, recvTime),
		sendInput:          sendInput,
		snapshots:          map[uint64]wire.Snapshot{snapshot.Tick: snapshot},
		sentInputs:         make(map[uint64]model.CharacterInput),
		oldestSnapshotTick: snapshot.Tick,
		predictedTick:      snapshot.Tick,
		model:              model.New(),
		predictedWorld:     model.NewWorld(),
	}
}

// Model returns the authoritative replay result as of the last DoTick.
func (e *Engine) Model() *model.Model {
	return e.model
}

// PredictedWorld returns the further-advanced, locally predicted world
// as of the last DoTick.
func (e *Engine) PredictedWorld() *model.World {
	return e.predictedWorld
}

// Tick returns the authoritative-replay cursor (the client's local tick clock position).
func (e *Engine) Tick() uint64 {
	return e.clock.TickInfo().Tick
}

// PredictedTick returns the tick predicted input is currently stamped with.
func (e *Engine) PredictedTick() uint64 {
	return e.predictedTick
}

// OnSnapshot folds a newly arrived snapshot into the tick clock and
// retains it only if its tick is newer than the oldest tick the engine
// still considers live.
func (e *Engine) OnSnapshot(snapshot wire.Snapshot, recvTime time.Time) {
	e.clock.OnSnapshotArrival(snapshot.Tick, recvTime)
	if snapshot.Tick > e.oldestSnapshotTick {
		e.snapshots[snapshot.Tick] = snapshot
	} else {
		logger.Debugf("discarded snapshot for tick %d (oldest retained is %d)", snapshot.Tick, e.oldestSnapshotTick)
	}
}

// DoTick advances the tick clock by one local tick, sends the given
// input stamped at the new predicted tick, garbage-collects retired
// snapshots/inputs, and replays to refresh Model and PredictedWorld.
func (e *Engine) DoTick(characterInput model.CharacterInput) {
	e.clock.Advance()
	tick := e.Tick()

	newPredictedTick := tick + protoconst.PredictionLead
	if newPredictedTick > e.predictedTick {
		e.predictedTick = newPredictedTick
	}

	e.garbageCollect(tick)
	e.sendAndSaveInput(characterInput)
	e.updateModel(tick)
}

func (e *Engine) garbageCollect(tick uint64) {
	newOldest := e.oldestSnapshotTick
	for t := tick; t > e.oldestSnapshotTick; t-- {
		if _, ok := e.snapshots[t]; ok {
			newOldest = t
			break
		}
	}
	for t := e.oldestSnapshotTick; t < newOldest; t++ {
		if _, ok := e.snapshots[t]; !ok {
			logger.Debugf("snapshot for tick %d was never seen", t)
		}
		delete(e.snapshots, t)
	}
	for t := e.oldestSnapshotTick + 1; t <= newOldest; t++ {
		delete(e.sentInputs, t)
	}
	e.oldestSnapshotTick = newOldest
}

func (e *Engine) sendAndSaveInput(characterInput model.CharacterInput) {
	e.sendInput(e.predictedTick, characterInput)
	e.sentInputs[e.predictedTick] = characterInput
}

func (e *Engine) updateModel(tick uint64) {
	oldest, ok := e.snapshots[e.oldestSnapshotTick]
	if !ok {
		logger.Debugf("oldest retained snapshot tick %d missing its snapshot", e.oldestSnapshotTick)
		return
	}
	e.model = oldest.Model.Clone()

	if tick > e.oldestSnapshotTick {
		logger.Debugf("%d ticks ahead of snapshots (tick=%d, oldest snapshot=%d)", tick-e.oldestSnapshotTick, tick, e.oldestSnapshotTick)
	}
	for t := e.oldestSnapshotTick + 1; t <= tick; t++ {
		if input, ok := e.sentInputs[t]; ok {
			e.model.SetCharacterInput(e.myPlayerID, input)
		}
		e.model.DoTick()
	}

	e.predictedWorld = e.model.World().Clone()
	for t := tick + 1; t <= e.predictedTick; t++ {
		if input, ok := e.sentInputs[t]; ok {
			e.predictedWorld.SetCharacterInput(e.myPlayerID, input)
		}
		e.predictedWorld.DoTick()
	}
}
