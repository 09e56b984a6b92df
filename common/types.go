// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package common

// MetricType distinguishes the two perspectives a span can contribute to:
// incoming traffic through the local service, or an outgoing call to a
// dependency.
type MetricType string

const (
	ServiceMetric    MetricType = "Service"
	DependencyMetric MetricType = "Dependency"
)

// Metric attributes produced by the generator. These are read by the
// CloudWatch agent's Application Signals processor and must not change.
const (
	AWSSpanKind                        = "aws.span.kind"
	AWSLocalService                    = "aws.local.service"
	AWSLocalOperation                  = "aws.local.operation"
	AWSRemoteService                   = "aws.remote.service"
	AWSRemoteOperation                 = "aws.remote.operation"
	AWSRemoteEnvironment               = "aws.remote.environment"
	AWSRemoteResourceType              = "aws.remote.resource.type"
	AWSRemoteResourceIdentifier        = "aws.remote.resource.identifier"
	AWSCloudFormationPrimaryIdentifier = "aws.remote.resource.cfn.primary.identifier"
	AWSRemoteResourceAccountID         = "aws.remote.resource.account.id"
	AWSRemoteResourceAccountAccessKey  = "aws.remote.resource.account.access.key"
	AWSRemoteResourceRegion            = "aws.remote.resource.region"
	AWSRemoteDBUser                    = "aws.remote.db.user"
)

// Attributes recorded on spans by the propagating processor and consumed by
// span classification.
const (
	AWSConsumerParentSpanKind = "aws.consumer.parent.span.kind"
	AWSSDKDescendant          = "aws.sdk.descendant"
)

// Attributes set by AWS SDK instrumentation, identifying the remote resource
// a call targets. The underscore/dot mix mirrors what the instrumentation
// libraries actually emit.
const (
	AWSSQSQueueURL                  = "aws.sqs.queue.url"
	AWSSQSQueueURLLegacy            = "aws.queue_url"
	AWSSQSQueueName                 = "aws.sqs.queue_name"
	AWSKinesisStreamName            = "aws.kinesis.stream_name"
	AWSKinesisStreamARN             = "aws.kinesis.stream.arn"
	AWSDynamoDBTableARN             = "aws.dynamodb.table.arn"
	AWSLambdaFunctionName           = "aws.lambda.function.name"
	AWSLambdaFunctionARN            = "aws.lambda.function.arn"
	AWSLambdaResourceMapID          = "aws.lambda.resource_mapping.id"
	AWSSecretsManagerSecretARN      = "aws.secretsmanager.secret.arn"
	AWSSNSTopicARN                  = "aws.sns.topic.arn"
	AWSStepFunctionsActivityARN     = "aws.stepfunctions.activity.arn"
	AWSStepFunctionsStateMachineARN = "aws.stepfunctions.state_machine.arn"
	AWSBedrockAgentID               = "aws.bedrock.agent.id"
	AWSBedrockDataSourceID          = "aws.bedrock.data_source.id"
	AWSBedrockGuardrailID           = "aws.bedrock.guardrail.id"
	AWSBedrockGuardrailARN          = "aws.bedrock.guardrail.arn"
	AWSBedrockKnowledgeBaseID       = "aws.bedrock.knowledge_base.id"
	GenAIRequestModel               = "gen_ai.request.model"
	AWSAuthAccessKey                = "aws.auth.account.access_key"
	AWSAuthRegion                   = "aws.auth.region"
)

// Legacy service/operation pair set by SDK instrumentation that predates the
// rpc.* conventions (e.g. otelaws for aws-sdk-go-v2).
const (
	AWSServiceLegacy   = "aws.service"
	AWSOperationLegacy = "aws.operation"
)

// Sentinel values emitted when a field cannot be determined. Downstream
// aggregation treats these as ordinary dimension values, so they are never
// omitted or null.
const (
	UnknownService         = "UnknownService"
	UnknownOperation       = "UnknownOperation"
	UnknownRemoteService   = "UnknownRemoteService"
	UnknownRemoteOperation = "UnknownRemoteOperation"
	InternalOperation      = "InternalOperation"
	LocalRoot              = "LOCAL_ROOT"
)

// Remote resource types, aligned with CloudFormation resource type names.
const (
	ResourceTypeDynamoDBTable            = "AWS::DynamoDB::Table"
	ResourceTypeKinesisStream            = "AWS::Kinesis::Stream"
	ResourceTypeLambdaFunction           = "AWS::Lambda::Function"
	ResourceTypeLambdaEventSourceMapping = "AWS::Lambda::EventSourceMapping"
	ResourceTypeS3Bucket                 = "AWS::S3::Bucket"
	ResourceTypeSecretsManagerSecret     = "AWS::SecretsManager::Secret"
	ResourceTypeSNSTopic                 = "AWS::SNS::Topic"
	ResourceTypeSQSQueue                 = "AWS::SQS::Queue"
	ResourceTypeStepFunctionsActivity    = "AWS::StepFunctions::Activity"
	ResourceTypeStateMachine             = "AWS::StepFunctions::StateMachine"
	ResourceTypeBedrockAgent             = "AWS::Bedrock::Agent"
	ResourceTypeBedrockDataSource        = "AWS::Bedrock::DataSource"
	ResourceTypeBedrockGuardrail         = "AWS::Bedrock::Guardrail"
	ResourceTypeBedrockKnowledgeBase     = "AWS::Bedrock::KnowledgeBase"
	ResourceTypeBedrockModel             = "AWS::Bedrock::Model"
	ResourceTypeDBConnection             = "DB::Connection"
)
