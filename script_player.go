// script_player.go - Lua-scripted key event sequences

/*
A small Lua surface for driving the engine without hardware or a MIDI
keyboard: demo tunes, soak tests, deterministic end-to-end tests. The
script runs on its own interpreter and produces the same normalized key
events as every other input source.

Exposed functions:

	press_button(id)    release_button(id)
	press_note(note)    release_note(note)
	wait(ms)

Example:

	press_button(0); wait(200)
	press_note(64);  wait(200)
	release_note(64); release_button(0)
*/

package main

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

type ScriptPlayer struct {
	dispatch func(KeyEvent)
	sleep    func(ms int)
}

// NewScriptPlayer sends each scripted event through dispatch. The default
// wait implementation sleeps in real time; tests replace it.
func NewScriptPlayer(dispatch func(KeyEvent)) *ScriptPlayer {
	return &ScriptPlayer{
		dispatch: dispatch,
		sleep: func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		},
	}
}

// RunFile executes the script at path to completion.
func (p *ScriptPlayer) RunFile(path string) error {
	L := p.newState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString executes an inline script.
func (p *ScriptPlayer) RunString(src string) error {
	L := p.newState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (p *ScriptPlayer) newState() *lua.LState {
	L := lua.NewState()
	L.SetGlobal("press_button", L.NewFunction(p.keyFn(KEY_DOMAIN_BUTTON, true)))
	L.SetGlobal("release_button", L.NewFunction(p.keyFn(KEY_DOMAIN_BUTTON, false)))
	L.SetGlobal("press_note", L.NewFunction(p.keyFn(KEY_DOMAIN_MIDI, true)))
	L.SetGlobal("release_note", L.NewFunction(p.keyFn(KEY_DOMAIN_MIDI, false)))
	L.SetGlobal("wait", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckInt(1)
		if ms > 0 {
			p.sleep(ms)
		}
		return 0
	}))
	return L
}

// keyFn builds a Lua function emitting one press or release. Range
// checking stays with the allocator, which discards invalid ids the same
// way it does for every other source.
func (p *ScriptPlayer) keyFn(domain KeyDomain, pressed bool) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckInt(1)
		if id < 0 || id > 255 {
			return 0
		}
		p.dispatch(KeyEvent{Key: Key{Domain: domain, ID: uint8(id)}, Pressed: pressed})
		return 0
	}
}
