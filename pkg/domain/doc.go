/*
Package domain contains the node protocol and the value types shared by every
part of the evaluation engine.

It defines what a node is, what the result of an introspection looks like, and
the error taxonomy the rest of the engine reports through. This package holds
no behavior beyond small helpers on those types; nodes live in pkg/node, the
caching layer in pkg/cache and request routing in pkg/runtime.

# Key Entities

  - Node: an immutable description of how to derive a value from a config.Config.
  - KeySet: the set of configuration paths an operation depends on.
  - Explanation: the result of Explain, either a KeySet or an explicit
    insufficient-information marker.

# Errors

Evaluation-class errors (EvaluationError, KeyNotFoundError, DispatchError,
DomainError, CyclicTemplateError, CacheExhaustedError,
InsufficientInformationError) all match ErrEvaluation. Validate reports the
same causes wrapped in a ValidationError, which matches ErrValidation while
still unwrapping to the original cause.
*/
package domain
