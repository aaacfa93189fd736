/*
Package structured 把“近似 JSON”的模型输出转换为满足 schema 必填字段约定的值。

处理分三步：

 1. [Repair]：尽力修复文本，从不失败；
 2. [Parse]：解析失败是硬错误；
 3. [ValidateRequired]：必填字段缺失时返回 [*MissingFieldsError]，
    列出全部缺失字段。

[RepairAndValidate] 串联以上三步。
*/
package structured
