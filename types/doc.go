// Copyright (c) PipeFlow Authors.
// Licensed under the MIT License.

/*
Package types provides shared type definitions for the PipeFlow engine.

types is the lowest-level public package. It depends on no internal
package and supplies the unified error contract used by workflow,
analysis, and config so that cross-package errors can be matched by
code instead of by string.

# Core types

  - ErrorCode — unified error code enumeration
  - Error     — structured error with code, message, step/workflow tags,
    and a wrapped cause compatible with errors.Is / errors.As
*/
package types
