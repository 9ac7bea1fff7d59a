// Package state tracks the single active dialog session of each user.
// Sessions live in process memory only and are lost on restart.
package state
