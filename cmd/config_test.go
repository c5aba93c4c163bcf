package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/job"
)

func TestRequireSharedQueue(t *testing.T) {
	tests := []struct {
		name    string
		command string
		driver  string
		wantErr bool
	}{
		{"worker on amqp", "worker", job.DriverAMQP, false},
		{"enqueue on amqp", "enqueue", job.DriverAMQP, false},
		{"worker on gochannel", "worker", job.DriverGoChannel, true},
		{"enqueue on gochannel", "enqueue", job.DriverGoChannel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireSharedQueue(tt.command, tt.driver)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *aisearch.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "queue.driver", cfgErr.Setting)
			assert.Contains(t, cfgErr.Reason, tt.command)
		})
	}
}

func TestEnqueueRejectsInProcessQueue(t *testing.T) {
	previous := viper.GetString("queue.driver")
	viper.Set("queue.driver", job.DriverGoChannel)
	t.Cleanup(func() { viper.Set("queue.driver", previous) })

	enqueueCmd.Flags().Set("workspace", "0c5b7a2e-3f7e-4a43-9d6f-0a8b1c2d3e4f")
	err := runEnqueue(enqueueCmd, []string{"workspace.embeddings_enabled"})

	assert.True(t, aisearch.IsFatal(err))
}
