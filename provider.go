package kernel

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Provider yields the Steps a plugin contributes for a given operation
// name. Any object that can produce Steps for a name satisfies this
// capability; Plugin is the named, versioned specialization the Manager
// actually registers.
type Provider interface {
	// StepsFor returns the steps this provider contributes to opName. An
	// empty, nil-error result means "no contribution to this operation".
	StepsFor(opName string) ([]Step, error)
}

// Plugin is a named, versioned Provider. Name must be unique across the
// set of plugins registered with one Manager.
type Plugin interface {
	Provider

	// Name returns the plugin's unique identifier.
	Name() string

	// Version returns the plugin's version string.
	Version() string
}

// OperationLister is an optional capability a Plugin may implement to
// enumerate the operations it contributes to, so that DropCache(WithPlugin)
// can restrict a cache drop to exactly the operations that plugin affects.
// A plugin that cannot enumerate its operations (e.g. because it generates
// step names dynamically) should not implement this interface; callers
// must treat its absence as "don't drop anything plugin-specific", not as
// "drop everything" (see SPEC_FULL.md §9 Open Questions).
type OperationLister interface {
	// ListOperations returns every operation name this plugin may
	// contribute a step to. Returns ErrUnlistableOperationSet if the set
	// cannot be determined statically.
	ListOperations() ([]string, error)
}

var (
	metaValidatorOnce sync.Once
	metaValidator     *validator.Validate

	pluginNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	semverLikePattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
)

// pluginMetadata is the validated shape of a plugin's identity, used by
// ValidatePluginMetadata before a plugin is accepted by a Manager.
type pluginMetadata struct {
	Name    string `validate:"required,plugin_name"`
	Version string `validate:"required,semver_like"`
}

func metadataValidator() *validator.Validate {
	metaValidatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("plugin_name", func(fl validator.FieldLevel) bool {
			return pluginNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("semver_like", func(fl validator.FieldLevel) bool {
			return semverLikePattern.MatchString(fl.Field().String())
		})

		metaValidator = v
	})

	return metaValidator
}

// ValidatePluginMetadata checks that p's Name and Version conform to the
// shapes the Manager requires before registration: a name beginning with a
// letter and a semver-ish version string. Manager.Register calls this
// automatically.
func ValidatePluginMetadata(p Plugin) error {
	meta := pluginMetadata{Name: p.Name(), Version: p.Version()}

	if err := metadataValidator().Struct(meta); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPluginMetadata, err)
	}

	return nil
}
