// Package engine owns player sessions and settles them.
//
// Every TickSeconds of game time the Ticker calls OnTick, which settles each session in
// parallel: company income and charges, job pay cycles, lifestyle mood, idle data, storage
// thresholds and player XP, in that order. Player actions enter through the Engine methods
// in actions.go and serialize with settlement on the session's mutex.
//
// Skill downloads run on a separate, faster timer (AdvanceDownloads).
package engine
