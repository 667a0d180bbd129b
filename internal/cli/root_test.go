package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cts", cmd.Use)
	assert.Contains(t, cmd.Long, "reference images")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"render_scenes", "compare_images", "query_features", "query_metadata",
		"check_object_properties", "create_report", "history",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	logFlag := cmd.PersistentFlags().Lookup("log-file")
	require.NotNil(t, logFlag)
	assert.Equal(t, "ANARI.log", logFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
		absent  []string
	}{
		{"render_scenes", []string{"device", "renderer", "test_scenes", "output", "scenes", "workers", "view_distance", "db", "metrics"}, []string{"comparison_methods", "report"}},
		{"compare_images", []string{"comparison_methods", "thresholds", "candidates", "output"}, []string{"renderer"}},
		{"query_features", []string{"device"}, []string{"test_scenes", "output"}},
		{"query_metadata", []string{"device"}, []string{"renderer"}},
		{"check_object_properties", []string{"device", "test_scenes", "variants"}, []string{"output", "thresholds"}},
		{"create_report", []string{"renderer", "comparison_methods", "thresholds", "report", "db", "metrics"}, []string{"candidates"}},
		{"history", []string{"db", "metric"}, []string{"device"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
			for _, name := range tt.absent {
				assert.Nil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestShortFlags(t *testing.T) {
	root := NewRootCommand()
	sub, _, err := root.Find([]string{"create_report"})
	require.NoError(t, err)

	for name, short := range map[string]string{"device": "d", "renderer": "r", "test_scenes": "t", "output": "o"} {
		f := sub.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, short, f.Shorthand, name)
	}
}

func TestCreateReportDefaults(t *testing.T) {
	root := NewRootCommand()
	sub, _, err := root.Find([]string{"create_report"})
	require.NoError(t, err)

	assert.Equal(t, "default", sub.Flags().Lookup("renderer").DefValue)
	assert.Equal(t, "all", sub.Flags().Lookup("test_scenes").DefValue)
	assert.Equal(t, "[ssim]", sub.Flags().Lookup("comparison_methods").DefValue)
	assert.Equal(t, "console", sub.Flags().Lookup("report").DefValue)
	assert.Equal(t, "1", sub.Flags().Lookup("workers").DefValue)
}
