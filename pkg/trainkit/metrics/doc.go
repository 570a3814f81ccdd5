// Package metrics forwards labeled training values to a telemetry sink and
// infers a step counter per tag.
//
// # Items and Types
//
// Every value is described by an Item: a Type from a closed set, the payload,
// and an optional explicit step. Each Type maps to exactly one Sink method:
//
//	scalar    -> AddScalar
//	scalars   -> AddScalars
//	image     -> AddImage
//	figure    -> AddFigure
//	audio     -> AddAudio
//	video     -> AddVideo
//	text      -> AddText
//	histogram -> AddHistogram
//	graph     -> AddGraph
//
// # Step Inference
//
// When an item carries no step, the Recorder uses the next step for its tag,
// starting at 0. An explicit step s is used as is and moves the tag's next
// step to s+1.
//
// Grouped scalars (Type scalars) track a step per sub-tag. Without an explicit
// step, all sub-tags must either be new (step 0) or share the same next step.
// Anything else fails with ErrStepMismatch and leaves the table unchanged.
//
// # Batches
//
// RecordBatch processes entries in ascending tag order. The first failure
// stops the batch: earlier entries remain forwarded and later entries are not
// attempted.
//
// # Sinks
//
// EventLogSink writes newline-delimited JSON events to an output directory.
// SQLiteSink stores events in a queryable table. PrometheusSink and OTelSink
// export the latest values as gauges. Fanout combines several sinks and
// MemorySink keeps every call in memory for tests.
package metrics
