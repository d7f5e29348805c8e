/*
Package session runs workflow orchestrators behind a single-goroutine execution context.

A Session owns one workflow.Orchestrator and one loop goroutine. Intents from any number
of callers are queued onto the loop; the format request started by an upload runs in its
own goroutine and posts its completion back onto the same loop, so every state mutation
happens in one place. Callers observe the workflow through Snapshot and Subscribe.

The Manager keeps named sessions for multi-user surfaces such as the HTTP API and closes
the ones left idle.
*/
package session
