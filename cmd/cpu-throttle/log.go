/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"io"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func setupLogger(w io.Writer, verbosity int) logr.Logger {
	opt := &zap.Options{
		Development:     true,
		DestWriter:      w,
		Level:           zapcore.Level(-verbosity),
		StacktraceLevel: zapcore.PanicLevel,
		EncoderConfigOptions: []zap.EncoderConfigOption{
			func(ec *zapcore.EncoderConfig) {
				ec.TimeKey = ""  // Disable timestamp
				ec.LevelKey = "" // Disable log level
			},
		},
	}

	return zap.New(zap.UseFlagOptions(opt))
}
