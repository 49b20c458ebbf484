// Package motion classifies live 6-axis inertial samples into motion
// states (resting, idle, walking, running).
//
// The online path is: SampleBuffer (sliding window) -> Classifier
// (window features and ordered threshold rules) -> Debouncer (hysteresis
// over raw labels). Recognizer wires the three together for an ingestion
// loop.
//
// No I/O happens here. Serial parsing, persistence and publishing live in
// the collaborator packages.
package motion
