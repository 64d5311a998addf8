package errors

// Code represents an error code
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"               // Unknown error occurred
	CodeIoError              Code = "IO_ERROR"              // Input/output operation failed
	CodeFileNotFound         Code = "FILE_NOT_FOUND"        // File not found
	CodeConfigurationInvalid Code = "CONFIGURATION_INVALID" // Configuration invalid
	CodeNetworkError         Code = "NETWORK_ERROR"         // Network error
	CodeGenerationFailed     Code = "GENERATION_FAILED"     // Generative model call failed

	CodeExtractionEmpty  Code = "EXTRACTION_EMPTY"  // No handler blocks found in the backend source
	CodeFormatError      Code = "FORMAT_ERROR"      // Reply has no decodable file sections
	CodeSandboxViolation Code = "SANDBOX_VIOLATION" // Reply path escapes the sandbox root
	CodeConfigMissing    Code = "CONFIG_MISSING"    // Deployment descriptor missing or unusable
	CodeDeployFailed     Code = "DEPLOY_FAILED"     // Deploy action exited non-zero
	CodeHealthTimeout    Code = "HEALTH_TIMEOUT"    // Health polling exhausted
)

// nonRetryable lists the codes a regenerated front end cannot fix.
var nonRetryable = map[Code]bool{
	CodeExtractionEmpty: true,
	CodeConfigMissing:   true,
}
