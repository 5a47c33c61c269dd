package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the `validate` struct tags of cfg and cross-field rules that tags cannot express.
// All violations are reported in a single error.
func Validate(cfg *Config) error {
	var problems []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	infra := cfg.Surfin.Infrastructure
	if infra.JobRepositoryType == "sql" {
		if infra.JobRepositoryDBRef == "" {
			problems = append(problems, "Config.Surfin.Infrastructure.JobRepositoryDBRef is required when job_repository_type is 'sql'")
		} else if _, ok := cfg.AdapterSection("database")[infra.JobRepositoryDBRef]; !ok {
			problems = append(problems, fmt.Sprintf("database connection '%s' referenced by job_repository_db_ref is not configured", infra.JobRepositoryDBRef))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
