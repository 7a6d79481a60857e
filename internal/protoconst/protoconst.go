// Package protoconst collects the named constants shared by the
// transport, clock, and prediction layers, grounded on
// original_source/shared/src/consts.rs.
package protoconst

import (
	"time"

	"github.com/duskrun-game/netcore/internal/ticktime"
)

// TickSpeed is the authoritative server simulation rate.
var TickSpeed = ticktime.NewTickRate(120)

// BaseSpeed is the client's local draw/predict tick rate before
// adaptive slewing is applied.
var BaseSpeed = ticktime.NewTickRate(60)

// TimeoutDuration is how long a connection may go without an ack
// before it is considered dead.
const TimeoutDuration = 10 * time.Second

// MaxUnackedMessages bounds a connection's outstanding reliable queue;
// exceeding it tears the connection down with a buffer-full reason.
const MaxUnackedMessages = 1024

// InitialAckDurationGuess seeds a new connection's ack-duration
// distribution before any real samples have arrived.
const InitialAckDurationGuess = 50 * time.Millisecond

// NewestAckDurationWeight is the Welford mixing weight applied to each
// new ack-duration sample.
const NewestAckDurationWeight = 0.001

// AckDurationSigmaFactor scales the ack-duration standard deviation
// into the resend timeout.
const AckDurationSigmaFactor = 3.0

// ClientConfigFile is the default path of the client's TOML config.
const ClientConfigFile = "client_conf.toml"

// NewestStartTickTimeWeight is the mixing weight for each snapshot's
// observed server start-tick-time sample.
const NewestStartTickTimeWeight = 0.001

// SnapshotArrivalSigmaFactor is the one-sided bias, in standard
// deviations, added to the estimated server start-tick-time so the
// client's tick clock stays ahead of snapshot arrival.
const SnapshotArrivalSigmaFactor = 3.0

// NewestStartPredictedTickTimeWeight is the mixing weight used by the
// diagnostic predicted-tick arrival distribution.
const NewestStartPredictedTickTimeWeight = 0.001

// InputArrivalSigmaFactor scales the diagnostic input-arrival jitter
// distribution's standard deviation.
const InputArrivalSigmaFactor = 4.0

// InitialLagAssumption seeds the client's initial guess of network lag
// before any round trip has been observed.
const InitialLagAssumption = 20 * time.Millisecond

// MaxInputKeepTime bounds how long the client retains a sent input
// waiting for its ack, both to cap memory and to keep the arrival
// distribution's samples recent.
const MaxInputKeepTime = 10 * time.Second

// ConnectionRequestResendInterval is how often a connecting client
// resends its ConnectionRequest while waiting for a confirm.
const ConnectionRequestResendInterval = 1 * time.Second

// DisconnectForceTimeout is the shortened ack-silence timeout applied
// once a connection has entered the disconnecting state.
const DisconnectForceTimeout = 1 * time.Second

// PredictionLead is the fixed number of ticks the predicted world runs
// ahead of the authoritative replay cursor.
const PredictionLead = 20

// JumpThreshold is the absolute tick-diff magnitude beyond which the
// client's tick clock teleports instead of slewing.
const JumpThreshold = 30.0

// MinSpeedFactor and MaxSpeedFactor bound the client tick clock's
// adaptive slew speed.
const (
	MinSpeedFactor = 0.5
	MaxSpeedFactor = 2.0
)

// FactorFactor scales the tick-diff into a speed-factor adjustment.
const FactorFactor = 0.5
