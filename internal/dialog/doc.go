// Package dialog implements a resumable, stack-based dialog engine for
// turn-based chat channels.
//
// A conversation owns one State: an ordered stack of Frames. Each inbound
// message resumes the top frame at its suspension point and the Runtime keeps
// executing actions (prompt, next, begin child, end, replace) in a loop until
// the stack suspends on a prompt or empties. State is plain JSON so a turn
// can be handled by a different process than the previous one.
package dialog
