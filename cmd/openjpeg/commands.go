package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/image/tiff"

	openjpeg "github.com/ajroetker/go-openjpeg"
	"github.com/ajroetker/go-openjpeg/internal/config"
)

func newXMLCmd(a *app) *cobra.Command {
	var (
		asString bool
		format   string
		key      string
	)

	cmd := &cobra.Command{
		Use:   "xml FILE",
		Short: "Print the XML metadata box",
		Long: `Prints the XML box of a JPEG 2000 file, either as the raw XML text
(--string) or as a nested mapping with numeric values converted.

Example:
  openjpeg xml image.jp2 --key meta.fits.NAXIS1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			if asString {
				s, err := openjpeg.ReadXMLBoxString(path)
				if err != nil {
					return err
				}
				a.logger.Debug("read XML box", zap.String("file", path), zap.Int("bytes", len(s)))
				_, err = fmt.Fprintln(out, s)
				return err
			}

			dict, err := openjpeg.ReadXMLBox(path)
			if err != nil {
				return err
			}
			a.logger.Debug("parsed XML box", zap.String("file", path), zap.Int("keys", len(dict)))

			var v any = dict
			if key != "" {
				var ok bool
				if v, ok = dict.Lookup(strings.Split(key, ".")...); !ok {
					return fmt.Errorf("key %q not found in XML box", key)
				}
			}
			return encode(out, a.format(format), v)
		},
	}

	cmd.Flags().BoolVar(&asString, "string", false, "print the raw XML text")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json or yaml")
	cmd.Flags().StringVarP(&key, "key", "k", "", "dot-separated path of a single value to print")
	return cmd
}

// infoReport adds box counts to openjpeg.Info for printing.
type infoReport struct {
	openjpeg.Info `yaml:",inline"`

	ColorSpaceName string `json:"color_space_name" yaml:"color_space_name"`
	XMLBoxCount    int    `json:"xml_boxes" yaml:"xml_boxes"`
	UUIDBoxCount   int    `json:"uuid_boxes" yaml:"uuid_boxes"`
	ICCProfileSize int    `json:"icc_profile_bytes,omitempty" yaml:"icc_profile_bytes,omitempty"`
}

func newInfoCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print the JP2 container structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := openjpeg.ReadInfo(args[0])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), a.format(format), infoReport{
				Info:           *info,
				ColorSpaceName: info.ColorSpace.String(),
				XMLBoxCount:    len(info.XMLBoxes),
				UUIDBoxCount:   len(info.UUIDBoxes),
				ICCProfileSize: len(info.ICCProfile),
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json or yaml")
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	var (
		output  string
		reduce  int
		layers  int
		threads int
	)

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode a JPEG 2000 file to PNG or TIFF",
		Long: `Decodes a JPEG 2000 file with libopenjp2 and writes the result as PNG
or TIFF, chosen by the extension of --output.

Example:
  openjpeg decode image.jp2 -o preview.png --reduce 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encodeImage, err := imageWriter(output)
			if err != nil {
				return err
			}

			opts := a.cfg.DecodeOptions()
			if cmd.Flags().Changed("reduce") {
				opts.Reduce = reduce
			}
			if cmd.Flags().Changed("layers") {
				opts.MaxLayers = layers
			}
			if cmd.Flags().Changed("threads") {
				opts.Threads = threads
			}

			a.logger.Debug("decoding",
				zap.String("file", args[0]),
				zap.Int("reduce", opts.Reduce),
				zap.Int("layers", opts.MaxLayers),
				zap.Int("threads", opts.Threads))

			raw, err := openjpeg.DecodeFile(args[0], opts)
			if err != nil {
				return err
			}
			img, err := raw.ToImage()
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := encodeImage(f, img); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			a.logger.Info("decoded",
				zap.String("file", args[0]),
				zap.String("output", output),
				zap.Stringer("color_space", raw.ColorSpace),
				zap.Int("components", len(raw.Components)),
				zap.Int("width", img.Bounds().Dx()),
				zap.Int("height", img.Bounds().Dy()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.png, .tif or .tiff)")
	cmd.Flags().IntVar(&reduce, "reduce", 0, "number of resolution levels to discard")
	cmd.Flags().IntVar(&layers, "layers", 0, "maximum quality layers to decode (0 = all)")
	cmd.Flags().IntVar(&threads, "threads", 0, "libopenjp2 worker threads")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

type imageEncoder func(f *os.File, img image.Image) error

// imageWriter picks the encoder for the output file extension.
func imageWriter(path string) (imageEncoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return func(f *os.File, img image.Image) error { return png.Encode(f, img) }, nil
	case ".tif", ".tiff":
		return func(f *os.File, img image.Image) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}, nil
	}
	return nil, fmt.Errorf("unsupported output extension %q (want .png, .tif or .tiff)", filepath.Ext(path))
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the linked libopenjp2 version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := openjpeg.Version()
			if v == "" {
				a.logger.Warn("built without cgo; decoding is unavailable")
				v = "unavailable"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "libopenjp2 %s\n", v)
			return err
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}
			if err := config.DefaultConfig().Save(a.configPath); err != nil {
				return err
			}
			a.logger.Info("wrote config", zap.String("path", a.configPath))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.configPath)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
