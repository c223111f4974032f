//nolint:lll
package config

// Config represents the complete configuration for floro. It covers every
// command (segment, batch, serve, project) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log" json:"log"`
	Segmentation SegmentationConfig `mapstructure:"segmentation" yaml:"segmentation" json:"segmentation"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output" json:"output"`
	Batch        BatchConfig        `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server" json:"server"`
	Project      ProjectConfig      `mapstructure:"project" yaml:"project" json:"project"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level" json:"level"`
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
}

// SegmentationConfig holds the watershed pipeline parameters.
type SegmentationConfig struct {
	Threshold            string  `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	ManualThreshold      int     `mapstructure:"manual_threshold" yaml:"manual_threshold" json:"manual_threshold"`
	Polarity             string  `mapstructure:"polarity" yaml:"polarity" json:"polarity"`
	KernelShape          string  `mapstructure:"kernel_shape" yaml:"kernel_shape" json:"kernel_shape"`
	KernelSize           int     `mapstructure:"kernel_size" yaml:"kernel_size" json:"kernel_size"`
	OpenIterations       int     `mapstructure:"open_iterations" yaml:"open_iterations" json:"open_iterations"`
	BackgroundIterations int     `mapstructure:"background_iterations" yaml:"background_iterations" json:"background_iterations"`
	ForegroundFraction   float64 `mapstructure:"foreground_fraction" yaml:"foreground_fraction" json:"foreground_fraction"`
	// MaxContourArea of 0 disables the area filter.
	MaxContourArea float64 `mapstructure:"max_contour_area" yaml:"max_contour_area" json:"max_contour_area"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	OverlayDir      string   `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool   `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
}

// ProjectConfig locates the ROI project file.
type ProjectConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
}
