// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/aws-observability/aws-application-signals-go/common"
)

const (
	// RemoteEnvironmentEnvVar overrides the environment reported for
	// downstream Lambda invocations.
	RemoteEnvironmentEnvVar = "LAMBDA_APPLICATION_SIGNALS_REMOTE_ENVIRONMENT"

	DefaultRemoteEnvironment = "default"
)

// RemoteEnvironment resolves the remote environment for Lambda Invoke
// calls. Read at generation time so tests and Lambda extensions can adjust
// it per process.
func RemoteEnvironment() string {
	env := strings.TrimSpace(os.Getenv(RemoteEnvironmentEnvVar))
	if env == "" {
		return DefaultRemoteEnvironment
	}
	return env
}

// Config controls the attribute-propagating span processor.
type Config struct {
	// PropagationDataKey is the attribute key the extracted value is written
	// under on every descendant span.
	PropagationDataKey string `mapstructure:"propagation_data_key"`
	// AttributesToPropagate are copied verbatim from the parent span when
	// present, so children inherit them until overwritten.
	AttributesToPropagate []string `mapstructure:"attributes_to_propagate"`
}

func NewDefaultConfig() *Config {
	return &Config{
		PropagationDataKey: common.AWSLocalOperation,
		AttributesToPropagate: []string{
			common.AWSRemoteService,
			common.AWSRemoteOperation,
		},
	}
}

func (cfg *Config) Validate() error {
	if cfg.PropagationDataKey == "" {
		return errors.New("propagation_data_key must not be empty")
	}
	for _, key := range cfg.AttributesToPropagate {
		if key == "" {
			return errors.New("attributes_to_propagate must not contain empty keys")
		}
	}
	return nil
}
