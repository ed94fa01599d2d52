package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "DecisionTreeClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey names the package or command emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "training", "validation", ...
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	ColumnKey   = "data.column"
	PathKey     = "data.path"
)

// Cross-validation and search.
const (
	// FoldKey is the fold index being trained or validated.
	FoldKey = "cv.fold"

	// NSplitsKey is the number of folds.
	NSplitsKey = "cv.n_splits"

	// StrategyKey is the splitting strategy: "kfold", "stratified", "regression".
	StrategyKey = "cv.strategy"

	// CandidateKey is the index of a sampled hyperparameter configuration.
	CandidateKey = "search.candidate"

	// ParamsKey holds a hyperparameter map.
	ParamsKey = "search.params"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	AUCKey        = "metrics.auc"
	LossKey       = "metrics.loss"
	ScoreKey      = "metrics.score"
	R2ScoreKey    = "metrics.r2_score"
	IterationKey  = "training.iteration"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"
)
