// Copyright (c) PipeFlow Authors.
// Licensed under the MIT License.

/*
Package analysis ships reference analysis components for the built-in
analysis types. Each component implements workflow.Invoker; the engine
itself only depends on that contract, so these can be replaced with any
external capability.

The reference components score deterministically from their prepared
inputs, which makes them suitable for examples and integration tests as
well as small production pipelines.
*/
package analysis
