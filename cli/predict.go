package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"insurecast/display"
	"insurecast/ml"
)

type predictOptions struct {
	age        int
	sex        string
	height     float64
	weight     float64
	bmi        float64
	children   int
	smoker     string
	region     string
	deployment string
	asJSON     bool
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the charge for one person",
		Long: `Estimates the yearly charge for one person. BMI comes from --height and
--weight, or directly from --bmi; passing --bmi together with either
measurement is an error.`,
		Example: `  insurecast predict --age 30 --sex male --height 170 --weight 70 --smoker no --region northeast
  insurecast predict --age 45 --sex female --bmi 31.5 --children 2 --smoker yes --region southeast --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.age, "age", 25, "age in years")
	f.StringVar(&opts.sex, "sex", string(ml.SexMale), "male or female")
	f.Float64Var(&opts.height, "height", 170, "height in cm")
	f.Float64Var(&opts.weight, "weight", 70, "weight in kg")
	f.Float64Var(&opts.bmi, "bmi", 0, "body mass index, instead of --height and --weight")
	f.IntVar(&opts.children, "children", 0, "number of children")
	f.StringVar(&opts.smoker, "smoker", string(ml.SmokerYes), "yes or no")
	f.StringVar(&opts.region, "region", string(ml.RegionNortheast), "northeast, northwest, southeast or southwest")
	f.StringVar(&opts.deployment, "deployment", "", "deployment name (default from config)")
	f.BoolVar(&opts.asJSON, "json", false, "print the estimate and feature vector as JSON")
	return cmd
}

func (o *predictOptions) rawInput(cmd *cobra.Command) ml.RawInput {
	raw := ml.RawInput{
		Age:      o.age,
		Sex:      ml.Sex(strings.ToLower(strings.TrimSpace(o.sex))),
		Children: o.children,
		Smoker:   ml.Smoker(strings.ToLower(strings.TrimSpace(o.smoker))),
		Region:   ml.Region(strings.ToLower(strings.TrimSpace(o.region))),
	}
	flags := cmd.Flags()
	if flags.Changed("bmi") {
		raw.BMI = ml.Float(o.bmi)
		// measurements count only when given explicitly next to --bmi
		if flags.Changed("height") {
			raw.HeightCM = ml.Float(o.height)
		}
		if flags.Changed("weight") {
			raw.WeightKG = ml.Float(o.weight)
		}
		return raw
	}
	raw.HeightCM = ml.Float(o.height)
	raw.WeightKG = ml.Float(o.weight)
	return raw
}

func runPredict(cmd *cobra.Command, root *rootOptions, opts *predictOptions) error {
	cfg, registry, err := root.loadRegistry(cmd.Context())
	if err != nil {
		return err
	}
	defer registry.Close()

	deployment, err := registry.Get(opts.deployment)
	if err != nil {
		return err
	}
	estimate, err := deployment.Estimate(cmd.Context(), opts.rawInput(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(estimate)
	}
	fmt.Fprintf(out, "Deployment:     %s\n", estimate.Deployment)
	fmt.Fprintf(out, "BMI:            %s (%s)\n", display.FormatBMI(estimate.BMI), display.BMICategory(estimate.BMI))
	fmt.Fprintf(out, "Estimated Cost: %s\n", display.FormatCharge(cfg.Display.Currency, estimate.Charge))
	return nil
}
