// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package generator

import (
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/aws-observability/aws-application-signals-go/common"
	"github.com/aws-observability/aws-application-signals-go/internal/awsarn"
	"github.com/aws-observability/aws-application-signals-go/internal/escape"
	"github.com/aws-observability/aws-application-signals-go/internal/spanutil"
	"github.com/aws-observability/aws-application-signals-go/internal/sqsurl"
)

// remoteResourceInfo carries the three related resource fields. They are
// emitted together or not at all.
type remoteResourceInfo struct {
	resourceType  string
	identifier    string
	cfnIdentifier string
}

// resourceRule pairs the attribute-presence condition selecting a resource
// kind with the extractor producing its fields. Rules are evaluated in
// fixed priority order; the first rule whose condition holds is the only
// one tried, and its extractor may still fail, in which case no resource
// fields are emitted for the span.
type resourceRule struct {
	condition func(sdktrace.ReadOnlySpan) bool
	extract   func(*MetricAttributeGenerator, sdktrace.ReadOnlySpan) (remoteResourceInfo, bool)
}

var awsResourceRules = []resourceRule{
	{hasSingleDynamoDBTableName, extractDynamoDBTableName},
	{has(common.AWSDynamoDBTableARN), extractDynamoDBTableARN},
	{has(common.AWSKinesisStreamName), plainIdentifier(common.AWSKinesisStreamName, common.ResourceTypeKinesisStream)},
	{has(common.AWSKinesisStreamARN), extractKinesisStreamARN},
	{isNonInvokeLambdaFunction, extractLambdaFunction},
	{has(common.AWSLambdaResourceMapID), plainIdentifier(common.AWSLambdaResourceMapID, common.ResourceTypeLambdaEventSourceMapping)},
	{has(semconv.AWSS3BucketKey), plainIdentifier(semconv.AWSS3BucketKey, common.ResourceTypeS3Bucket)},
	{has(common.AWSSecretsManagerSecretARN), arnIdentifier(common.AWSSecretsManagerSecretARN, common.ResourceTypeSecretsManagerSecret)},
	{has(common.AWSSNSTopicARN), arnIdentifier(common.AWSSNSTopicARN, common.ResourceTypeSNSTopic)},
	{hasSQSQueue, extractSQSQueue},
	{has(common.AWSStepFunctionsActivityARN), arnIdentifier(common.AWSStepFunctionsActivityARN, common.ResourceTypeStepFunctionsActivity)},
	{has(common.AWSStepFunctionsStateMachineARN), arnIdentifier(common.AWSStepFunctionsStateMachineARN, common.ResourceTypeStateMachine)},
	{has(common.AWSBedrockAgentID), plainIdentifier(common.AWSBedrockAgentID, common.ResourceTypeBedrockAgent)},
	{has(common.AWSBedrockDataSourceID), extractBedrockDataSource},
	{has(common.AWSBedrockGuardrailID), extractBedrockGuardrail},
	{has(common.AWSBedrockKnowledgeBaseID), plainIdentifier(common.AWSBedrockKnowledgeBaseID, common.ResourceTypeBedrockKnowledgeBase)},
	{has(common.GenAIRequestModel), plainIdentifier(common.GenAIRequestModel, common.ResourceTypeBedrockModel)},
}

// remoteResource identifies the AWS resource or database targeted by the
// span. Returns false when no resource can be identified; partial fields
// are never emitted.
func (g *MetricAttributeGenerator) remoteResource(span sdktrace.ReadOnlySpan) ([]attribute.KeyValue, bool) {
	var info remoteResourceInfo
	var ok bool
	switch {
	case spanutil.IsAwsSDKSpan(span):
		for _, rule := range awsResourceRules {
			if rule.condition(span) {
				info, ok = rule.extract(g, span)
				break
			}
		}
	case spanutil.IsDBSpan(span):
		info, ok = g.extractDBConnection(span)
	}
	if !ok || info.identifier == "" {
		return nil, false
	}
	if info.cfnIdentifier == "" {
		info.cfnIdentifier = info.identifier
	}
	return []attribute.KeyValue{
		attribute.String(common.AWSRemoteResourceType, info.resourceType),
		attribute.String(common.AWSRemoteResourceIdentifier, info.identifier),
		attribute.String(common.AWSCloudFormationPrimaryIdentifier, info.cfnIdentifier),
	}, true
}

func has(key attribute.Key) func(sdktrace.ReadOnlySpan) bool {
	return func(span sdktrace.ReadOnlySpan) bool {
		return spanutil.HasAttr(span, key)
	}
}

// plainIdentifier builds the common case: one attribute value, escaped, as
// both the identifier and the CloudFormation primary identifier.
func plainIdentifier(key attribute.Key, resourceType string) func(*MetricAttributeGenerator, sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	return func(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
		value, _ := spanutil.Attr(span, key)
		if value == "" {
			return remoteResourceInfo{}, false
		}
		return remoteResourceInfo{resourceType: resourceType, identifier: escape.Delimiters(value)}, true
	}
}

// arnIdentifier covers resources whose CloudFormation primary identifier is
// the ARN itself while the display identifier is the trailing resource name.
func arnIdentifier(key attribute.Key, resourceType string) func(*MetricAttributeGenerator, sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	return func(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
		arn, _ := spanutil.Attr(span, key)
		name := awsarn.ResourceName(arn)
		if name == "" {
			return remoteResourceInfo{}, false
		}
		return remoteResourceInfo{
			resourceType:  resourceType,
			identifier:    escape.Delimiters(name),
			cfnIdentifier: escape.Delimiters(arn),
		}, true
	}
}

func hasSingleDynamoDBTableName(span sdktrace.ReadOnlySpan) bool {
	return len(dynamoDBTableNames(span)) == 1
}

func dynamoDBTableNames(span sdktrace.ReadOnlySpan) []string {
	value, ok := spanutil.AttrValue(span, semconv.AWSDynamoDBTableNamesKey)
	if !ok {
		return nil
	}
	if value.Type() == attribute.STRINGSLICE {
		return value.AsStringSlice()
	}
	return []string{value.Emit()}
}

func extractDynamoDBTableName(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	names := dynamoDBTableNames(span)
	if len(names) != 1 || names[0] == "" {
		return remoteResourceInfo{}, false
	}
	return remoteResourceInfo{
		resourceType: common.ResourceTypeDynamoDBTable,
		identifier:   escape.Delimiters(names[0]),
	}, true
}

func extractDynamoDBTableARN(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	arn, _ := spanutil.Attr(span, common.AWSDynamoDBTableARN)
	name := awsarn.DynamoDBTableName(arn)
	if name == "" {
		return remoteResourceInfo{}, false
	}
	return remoteResourceInfo{
		resourceType: common.ResourceTypeDynamoDBTable,
		identifier:   escape.Delimiters(name),
	}, true
}

func extractKinesisStreamARN(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	arn, _ := spanutil.Attr(span, common.AWSKinesisStreamARN)
	name := awsarn.KinesisStreamName(arn)
	if name == "" {
		return remoteResourceInfo{}, false
	}
	return remoteResourceInfo{
		resourceType: common.ResourceTypeKinesisStream,
		identifier:   escape.Delimiters(name),
	}, true
}

// A Lambda Invoke models the target function as a remote service, not a
// remote resource, so the function rule only applies to the control-plane
// operations.
func isNonInvokeLambdaFunction(span sdktrace.ReadOnlySpan) bool {
	return spanutil.HasAttr(span, common.AWSLambdaFunctionName) && !isLambdaInvokeOperation(span)
}

func extractLambdaFunction(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	name, _ := spanutil.Attr(span, common.AWSLambdaFunctionName)
	if name == "" {
		return remoteResourceInfo{}, false
	}
	info := remoteResourceInfo{
		resourceType: common.ResourceTypeLambdaFunction,
		identifier:   escape.Delimiters(name),
	}
	if arn, ok := spanutil.Attr(span, common.AWSLambdaFunctionARN); ok && arn != "" {
		info.cfnIdentifier = escape.Delimiters(arn)
	}
	return info, true
}

func hasSQSQueue(span sdktrace.ReadOnlySpan) bool {
	if spanutil.HasAttr(span, common.AWSSQSQueueName) {
		return true
	}
	_, ok := sqsQueueURL(span)
	return ok
}

func sqsQueueURL(span sdktrace.ReadOnlySpan) (string, bool) {
	if u, ok := spanutil.Attr(span, common.AWSSQSQueueURL); ok {
		return u, true
	}
	return spanutil.Attr(span, common.AWSSQSQueueURLLegacy)
}

func extractSQSQueue(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	info := remoteResourceInfo{resourceType: common.ResourceTypeSQSQueue}
	if name, ok := spanutil.Attr(span, common.AWSSQSQueueName); ok && name != "" {
		info.identifier = escape.Delimiters(name)
	}
	queueURL, hasURL := sqsQueueURL(span)
	if info.identifier == "" && hasURL {
		info.identifier = escape.Delimiters(sqsurl.QueueName(queueURL))
	}
	if info.identifier == "" {
		return remoteResourceInfo{}, false
	}
	if hasURL {
		info.cfnIdentifier = escape.Delimiters(queueURL)
	}
	return info, true
}

func extractBedrockDataSource(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	dataSourceID, _ := spanutil.Attr(span, common.AWSBedrockDataSourceID)
	if dataSourceID == "" {
		return remoteResourceInfo{}, false
	}
	info := remoteResourceInfo{
		resourceType: common.ResourceTypeBedrockDataSource,
		identifier:   escape.Delimiters(dataSourceID),
	}
	// The Cloud Control identifier for a data source is composite.
	if knowledgeBaseID, ok := spanutil.Attr(span, common.AWSBedrockKnowledgeBaseID); ok && knowledgeBaseID != "" {
		info.cfnIdentifier = escape.Delimiters(knowledgeBaseID) + "|" + escape.Delimiters(dataSourceID)
	}
	return info, true
}

func extractBedrockGuardrail(_ *MetricAttributeGenerator, span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	guardrailID, _ := spanutil.Attr(span, common.AWSBedrockGuardrailID)
	if guardrailID == "" {
		return remoteResourceInfo{}, false
	}
	info := remoteResourceInfo{
		resourceType: common.ResourceTypeBedrockGuardrail,
		identifier:   escape.Delimiters(guardrailID),
	}
	if arn, ok := spanutil.Attr(span, common.AWSBedrockGuardrailARN); ok && arn != "" {
		info.cfnIdentifier = escape.Delimiters(arn)
	}
	return info, true
}

// extractDBConnection synthesizes a resource for database clients from the
// endpoint the span connected to. Address resolution order: server.address,
// net.peer.name, server.socket.address, then the connection string.
func (g *MetricAttributeGenerator) extractDBConnection(span sdktrace.ReadOnlySpan) (remoteResourceInfo, bool) {
	address, port := g.dbEndpoint(span)
	if address == "" {
		return remoteResourceInfo{}, false
	}
	connection := escape.Delimiters(address)
	if port != "" {
		connection += "|" + port
	}
	identifier := connection
	if dbName, ok := spanutil.Attr(span, semconv.DBNameKey); ok {
		identifier = escape.Delimiters(dbName) + "|" + connection
	}
	return remoteResourceInfo{
		resourceType: common.ResourceTypeDBConnection,
		identifier:   identifier,
	}, true
}

func (g *MetricAttributeGenerator) dbEndpoint(span sdktrace.ReadOnlySpan) (address, port string) {
	pairs := []struct {
		addressKey attribute.Key
		portKey    attribute.Key
	}{
		{semconv.ServerAddressKey, semconv.ServerPortKey},
		{semconv.NetPeerNameKey, semconv.NetPeerPortKey},
		{semconv.ServerSocketAddressKey, semconv.ServerSocketPortKey},
	}
	for _, pair := range pairs {
		if addr, ok := spanutil.Attr(span, pair.addressKey); ok && addr != "" {
			p, _ := spanutil.Attr(span, pair.portKey)
			return addr, p
		}
	}
	if connStr, ok := spanutil.Attr(span, semconv.DBConnectionStringKey); ok {
		parsed, err := url.Parse(connStr)
		if err != nil || parsed.Hostname() == "" {
			g.logger.Debug("invalid db.connection_string, omitting DB::Connection resource",
				zap.String("traceId", span.SpanContext().TraceID().String()),
				zap.String("spanId", span.SpanContext().SpanID().String()))
			return "", ""
		}
		return parsed.Hostname(), parsed.Port()
	}
	return "", ""
}

// Attributes carrying an ARN for the identified resource, in the same
// priority order as the resource rules.
var remoteResourceARNKeys = []attribute.Key{
	common.AWSDynamoDBTableARN,
	common.AWSKinesisStreamARN,
	common.AWSSecretsManagerSecretARN,
	common.AWSSNSTopicARN,
	common.AWSStepFunctionsActivityARN,
	common.AWSStepFunctionsStateMachineARN,
	common.AWSBedrockGuardrailARN,
	common.AWSLambdaFunctionARN,
}

// remoteAccountAndRegion attributes the identified resource to an account.
// An ARN or queue URL gives the account id directly; failing that, the
// signing access key stands in for it. At most one of account id and access
// key is emitted, and only together with a region.
func (g *MetricAttributeGenerator) remoteAccountAndRegion(span sdktrace.ReadOnlySpan) []attribute.KeyValue {
	var accountID, region string
	if queueURL, ok := sqsQueueURL(span); ok {
		parsed, valid := sqsurl.ParseURL(queueURL)
		if valid {
			accountID, region = parsed.AccountID, parsed.Region
		}
	} else {
		for _, key := range remoteResourceARNKeys {
			if arn, ok := spanutil.Attr(span, key); ok {
				accountID = awsarn.AccountID(arn)
				region = awsarn.Region(arn)
				break
			}
		}
	}
	if accountID != "" && region != "" {
		return []attribute.KeyValue{
			attribute.String(common.AWSRemoteResourceAccountID, accountID),
			attribute.String(common.AWSRemoteResourceRegion, region),
		}
	}
	accessKey, hasKey := spanutil.Attr(span, common.AWSAuthAccessKey)
	authRegion, hasRegion := spanutil.Attr(span, common.AWSAuthRegion)
	if hasKey && hasRegion && accessKey != "" && authRegion != "" {
		return []attribute.KeyValue{
			attribute.String(common.AWSRemoteResourceAccountAccessKey, accessKey),
			attribute.String(common.AWSRemoteResourceRegion, authRegion),
		}
	}
	return nil
}
