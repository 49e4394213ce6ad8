// Copyright (c) PipeFlow Authors.
// Licensed under the MIT License.

/*
Package config provides unified configuration loading for PipeFlow.

Configuration is resolved with the precedence defaults → YAML file →
environment variables. Environment keys are derived from the env struct
tags joined with underscores under the loader prefix, e.g.
PIPEFLOW_ENGINE_HISTORY_LIMIT.
*/
package config
